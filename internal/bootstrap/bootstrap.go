package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/mrc-intake/internal/config"
	"github.com/kirillkom/mrc-intake/internal/core/ports"
	"github.com/kirillkom/mrc-intake/internal/core/usecase"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/events/nats"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/pdf"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/resilience"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/vision/gemini"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/vision/ollama"
	"github.com/kirillkom/mrc-intake/internal/report"
)

type App struct {
	Config config.Config

	Diagnoser ports.IntakeDiagnoser

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	storage, err := localfs.New(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}

	guard := resilience.NewGuard(resilience.Config{
		BreakerEnabled:      cfg.VisionBreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.VisionBreakerMinRequests, 0)),
		BreakerFailureRatio: cfg.VisionBreakerFailureRatio,
		BreakerOpenTimeout:  time.Duration(cfg.VisionBreakerOpenTimeoutMs) * time.Millisecond,
	})

	analyzer, err := newAnalyzer(ctx, cfg, guard)
	if err != nil {
		return nil, fmt.Errorf("init vision analyzer: %w", err)
	}

	catalog, err := report.DefaultCatalog()
	if err != nil {
		_ = analyzer.Close()
		return nil, fmt.Errorf("load report catalog: %w", err)
	}
	engine := pdf.NewEngine(cfg.FontPath, cfg.FontFamily, storage)
	renderer, err := report.NewRenderer(engine, catalog, cfg.UploadDir)
	if err != nil {
		_ = analyzer.Close()
		return nil, fmt.Errorf("init report renderer: %w", err)
	}

	opts := []usecase.DiagnoseOption{usecase.WithAnalysisParallelism(cfg.VisionParallelism)}
	var publisher *nats.Publisher
	if cfg.NATSURL != "" {
		publisher, err = nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{Guard: guard})
		if err != nil {
			_ = analyzer.Close()
			return nil, fmt.Errorf("init report events: %w", err)
		}
		opts = append(opts, usecase.WithEventPublisher(publisher))
	}

	diagnoser := usecase.NewDiagnoseUseCase(storage, analyzer, renderer, opts...)

	return &App{
		Config:    cfg,
		Diagnoser: diagnoser,

		closeFn: func() {
			if publisher != nil {
				publisher.Close()
			}
			if err := analyzer.Close(); err != nil {
				slog.Warn("vision_close_failed", "error", err)
			}
		},
	}, nil
}

type visionAnalyzer interface {
	ports.PhotoAnalyzer
	Close() error
}

func newAnalyzer(ctx context.Context, cfg config.Config, guard *resilience.Guard) (visionAnalyzer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.VisionProvider)) {
	case "", "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Warn("gemini_api_key_missing", "effect", "photo findings will contain error placeholders")
		}
		return gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, guard)
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.OllamaModel, guard), nil
	default:
		return nil, fmt.Errorf("unknown VISION_PROVIDER %q", cfg.VisionProvider)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
