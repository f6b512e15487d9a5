package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
	"github.com/kirillkom/mrc-intake/internal/core/ports"
)

// Renderer composes reports and writes them into a single output directory.
// Reports for the same name and age overwrite each other.
type Renderer struct {
	engine    ports.DocumentEngine
	catalog   *Catalog
	outputDir string
}

func NewRenderer(engine ports.DocumentEngine, catalog *Catalog, outputDir string) (*Renderer, error) {
	if catalog == nil {
		var err error
		if catalog, err = DefaultCatalog(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &Renderer{engine: engine, catalog: catalog, outputDir: outputDir}, nil
}

func (r *Renderer) Render(ctx context.Context, in domain.ReportInput) (string, error) {
	doc, err := r.engine.NewDocument()
	if err != nil {
		return "", fmt.Errorf("new document: %w", err)
	}
	rep, err := Compose(doc, r.catalog, preparePhoto(ctx, doc, in))
	if err != nil {
		return "", fmt.Errorf("compose report: %w", err)
	}

	path := filepath.Join(r.outputDir, Filename(in.Form.Patient))
	if err := doc.Write(ctx, rep, path); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}

// preparePhoto loads the narrative photo ahead of layout. When it cannot be embedded the
// input loses its photos, so the whole photo section (image, caption, spacing) is left out.
func preparePhoto(ctx context.Context, doc ports.Document, in domain.ReportInput) domain.ReportInput {
	photo := narrativePhoto(in.Photos, in.Findings)
	if photo == nil {
		return in
	}
	if err := doc.PrepareImage(ctx, photo.Key, photo.MIMEType); err != nil {
		slog.Warn("report_image_skipped", "key", photo.Key, "mime_type", photo.MIMEType, "error", err)
		in.Photos = nil
		return in
	}
	in.Photos = []domain.StoredPhoto{*photo}
	return in
}

// Filename is diagnosis_report_<name>_<age>.pdf with path-unsafe characters replaced.
func Filename(patient domain.Patient) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, patient.Name)
	return "diagnosis_report_" + name + "_" + strconv.Itoa(patient.Age) + ".pdf"
}
