package ports

import (
	"context"
	"io"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
)

// PhotoStorage stores uploaded photos under their supplied file names.
type PhotoStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// PhotoAnalyzer asks the image-understanding model for a free-text finding.
type PhotoAnalyzer interface {
	AnalyzePhoto(ctx context.Context, req domain.PhotoAnalysisRequest) (string, error)
}

// ReportRenderer writes the report file and returns its path.
type ReportRenderer interface {
	Render(ctx context.Context, in domain.ReportInput) (string, error)
}

// ReportEventPublisher announces generated reports.
type ReportEventPublisher interface {
	PublishReportGenerated(ctx context.Context, event domain.ReportGenerated) error
}

// TextMeasurer measures a single-style string in points.
type TextMeasurer interface {
	TextWidth(text string, bold bool, size float64) float64
}

// Document is one report being laid out and written.
type Document interface {
	TextMeasurer
	// PrepareImage loads a stored photo so a later ImageBox with the same key can be drawn.
	PrepareImage(ctx context.Context, key, mimeType string) error
	Write(ctx context.Context, report domain.Report, path string) error
}

// DocumentEngine creates documents with fonts already registered.
type DocumentEngine interface {
	NewDocument() (Document, error)
}
