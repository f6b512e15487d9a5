package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
	"github.com/kirillkom/mrc-intake/internal/infrastructure/resilience"
)

func testRequest() domain.PhotoAnalysisRequest {
	return domain.PhotoAnalysisRequest{
		View:     domain.ViewUpperOcclusal,
		Label:    "上顎咬合面観",
		MIMEType: "image/png",
		Data:     []byte("png-bytes"),
	}
}

func TestAnalyzePhotoSendsPromptAndImage(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  - 叢生あり\n"}`))
	}))
	defer server.Close()

	a := New(server.URL+"/", "llava", resilience.NewGuard(resilience.DefaultConfig()))
	got, err := a.AnalyzePhoto(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("AnalyzePhoto() error = %v", err)
	}
	if got != "- 叢生あり" {
		t.Fatalf("unexpected analysis %q", got)
	}
	if payload["model"] != "llava" || payload["stream"] != false {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if prompt, _ := payload["prompt"].(string); !strings.Contains(prompt, "この上顎咬合面観の口腔内写真") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	images, _ := payload["images"].([]any)
	if len(images) != 1 || images[0] != base64.StdEncoding.EncodeToString([]byte("png-bytes")) {
		t.Fatalf("unexpected images %#v", payload["images"])
	}
}

func TestAnalyzePhotoIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	a := New(server.URL, "llava", nil)
	_, err := a.AnalyzePhoto(context.Background(), testRequest())
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPStatusError, got %T", err)
	}
}

func TestAnalyzePhotoEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"   "}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, "llava", nil).AnalyzePhoto(context.Background(), testRequest()); err == nil {
		t.Fatalf("expected error for empty response")
	}
}

func TestCountsAgainstBreaker(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"canceled", context.Canceled, false},
		{"bad request", &HTTPStatusError{StatusCode: http.StatusBadRequest}, false},
		{"not found", &HTTPStatusError{StatusCode: http.StatusNotFound}, false},
		{"throttled", &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, true},
		{"transport", errors.New("connection refused"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := countsAgainstBreaker(tc.err); got != tc.want {
				t.Fatalf("countsAgainstBreaker(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
