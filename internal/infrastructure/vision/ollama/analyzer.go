package ollama

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/resilience"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/vision"
)

const operation = "ollama.analyze_photo"

// Analyzer sends photos to a self-hosted multimodal model (llava and friends) through
// the Ollama generate API.
type Analyzer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	guard      *resilience.Guard
}

func New(baseURL, model string, guard *resilience.Guard) *Analyzer {
	return &Analyzer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		guard:      guard,
	}
}

func (a *Analyzer) Close() error { return nil }

func (a *Analyzer) AnalyzePhoto(ctx context.Context, req domain.PhotoAnalysisRequest) (string, error) {
	request := map[string]any{
		"model":  a.model,
		"prompt": vision.Prompt(req.Label),
		"images": []string{base64.StdEncoding.EncodeToString(req.Data)},
		"stream": false,
	}

	var text string
	err := a.guard.Execute(ctx, operation, func(ctx context.Context) error {
		var response struct {
			Response string `json:"response"`
		}
		if err := a.postJSON(ctx, "/api/generate", request, &response, "generate"); err != nil {
			return err
		}
		text = strings.TrimSpace(response.Response)
		if text == "" {
			return errors.New("ollama: empty response")
		}
		return nil
	}, countsAgainstBreaker)
	if err != nil {
		return "", err
	}
	return text, nil
}
