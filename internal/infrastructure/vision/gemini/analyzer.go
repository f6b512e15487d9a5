package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/resilience"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/vision"
)

const operation = "gemini.analyze_photo"

var errEmptyAPIKey = errors.New("GEMINI_API_KEY is empty")

// generator is the part of *genai.GenerativeModel the analyzer needs.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Analyzer struct {
	client *genai.Client
	model  generator
	guard  *resilience.Guard
}

// New connects to the Gemini API once. An empty API key yields an analyzer whose every
// call fails, so findings degrade to placeholders instead of the service refusing to start.
func New(ctx context.Context, apiKey, model string, guard *resilience.Guard) (*Analyzer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return &Analyzer{guard: guard}, nil
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Analyzer{
		client: cl,
		model:  cl.GenerativeModel(strings.TrimSpace(model)),
		guard:  guard,
	}, nil
}

func newWithGenerator(model generator, guard *resilience.Guard) *Analyzer {
	return &Analyzer{model: model, guard: guard}
}

func (a *Analyzer) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

func (a *Analyzer) AnalyzePhoto(ctx context.Context, req domain.PhotoAnalysisRequest) (string, error) {
	if a.model == nil {
		return "", errEmptyAPIKey
	}

	parts := []genai.Part{
		genai.Text(vision.Prompt(req.Label)),
		&genai.Blob{MIMEType: req.MIMEType, Data: req.Data},
	}

	var text string
	err := a.guard.Execute(ctx, operation, func(ctx context.Context) error {
		resp, err := a.model.GenerateContent(ctx, parts...)
		if err != nil {
			return err
		}
		text = responseText(resp)
		if text == "" {
			return errors.New("gemini: empty response")
		}
		return nil
	}, countsAgainstBreaker)
	if err != nil {
		return "", err
	}
	return text, nil
}

// responseText joins the text parts of the first candidate that has any.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

// countsAgainstBreaker ignores caller mistakes and cancellations; outages and throttling count.
func countsAgainstBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError || apiErr.Code == http.StatusTooManyRequests
	}
	return true
}
