package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
	"github.com/kirillkom/mrc-intake/internal/core/ports"
	"github.com/kirillkom/mrc-intake/internal/core/rubric"
)

type DiagnoseUseCase struct {
	storage  ports.PhotoStorage
	analyzer ports.PhotoAnalyzer
	renderer ports.ReportRenderer
	events   ports.ReportEventPublisher

	parallelism int
	now         func() time.Time
}

type DiagnoseOption func(*DiagnoseUseCase)

// WithEventPublisher announces every generated report. Nil disables publishing.
func WithEventPublisher(events ports.ReportEventPublisher) DiagnoseOption {
	return func(uc *DiagnoseUseCase) {
		uc.events = events
	}
}

// WithAnalysisParallelism bounds concurrent model calls. Values below 2 keep the
// calls sequential.
func WithAnalysisParallelism(n int) DiagnoseOption {
	return func(uc *DiagnoseUseCase) {
		uc.parallelism = n
	}
}

func NewDiagnoseUseCase(
	storage ports.PhotoStorage,
	analyzer ports.PhotoAnalyzer,
	renderer ports.ReportRenderer,
	opts ...DiagnoseOption,
) *DiagnoseUseCase {
	uc := &DiagnoseUseCase{
		storage:     storage,
		analyzer:    analyzer,
		renderer:    renderer,
		parallelism: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *DiagnoseUseCase) Diagnose(ctx context.Context, form domain.IntakeForm, photos domain.PhotoSet) (*domain.Diagnosis, error) {
	scores := rubric.Classify(form)

	stored, err := uc.storePhotos(ctx, photos)
	if err != nil {
		return nil, err
	}

	findings := uc.collectFindings(ctx, photos, stored)

	reportPath, err := uc.renderer.Render(ctx, domain.ReportInput{
		Form:     form,
		Scores:   scores,
		Findings: findings,
		Photos:   stored,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrRenderFailed, "render report", err)
	}

	diagnosis := &domain.Diagnosis{
		Scores:     scores,
		Findings:   findings,
		Photos:     stored,
		ReportPath: reportPath,
		ReportName: filepath.Base(reportPath),
	}
	uc.publish(ctx, diagnosis)

	return diagnosis, nil
}

func (uc *DiagnoseUseCase) publish(ctx context.Context, diagnosis *domain.Diagnosis) {
	if uc.events == nil {
		return
	}
	event := domain.ReportGenerated{
		RiskLevel:      diagnosis.Scores.Risk,
		Appliance:      diagnosis.Scores.Appliance,
		MuscleScore:    diagnosis.Scores.MuscleScore,
		AlignmentScore: diagnosis.Scores.AlignmentScore,
		PhotoCount:     len(diagnosis.Photos),
		FailedFindings: diagnosis.FailedFindings(),
		GeneratedAt:    uc.now().UTC(),
	}
	if err := uc.events.PublishReportGenerated(ctx, event); err != nil {
		slog.Warn("report_event_publish_failed", "report", diagnosis.ReportName, "error", fmt.Sprint(err))
	}
}
