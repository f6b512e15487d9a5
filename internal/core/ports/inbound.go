package ports

import (
	"context"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
)

// IntakeDiagnoser is the inbound contract for the intake-to-report flow.
type IntakeDiagnoser interface {
	Diagnose(ctx context.Context, form domain.IntakeForm, photos domain.PhotoSet) (*domain.Diagnosis, error)
}
