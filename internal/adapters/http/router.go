package httpadapter

import (
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/mrc-intake/internal/config"
	"github.com/kirillkom/mrc-intake/internal/core/ports"
	"github.com/kirillkom/mrc-intake/internal/observability/metrics"
)

const serviceName = "api"

//go:embed static/index.html
var indexHTML []byte

type Router struct {
	cfg       config.Config
	diagnoser ports.IntakeDiagnoser
	metrics   *metrics.HTTPServerMetrics
	validate  *validator.Validate
}

func NewRouter(cfg config.Config, diagnoser ports.IntakeDiagnoser, m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:       cfg,
		diagnoser: diagnoser,
		metrics:   m,
		validate:  newValidator(),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.index)
	mux.HandleFunc("/diagnose", rt.diagnose)
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/openapi.json", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIQueueWaitMs)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	doc, err := openAPIDocument()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (rt *Router) diagnose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	maxBytes := int64(rt.cfg.MaxUploadMB) << 20
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	if r.ContentLength > maxBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, &http.MaxBytesError{Limit: maxBytes})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = invalidInput(err)
		}
		writeError(w, r, mapErrorToHTTPStatus(err), err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	form, photos, err := parseIntakeForm(r.MultipartForm, rt.validate)
	if err != nil {
		writeError(w, r, mapErrorToHTTPStatus(err), err)
		return
	}

	start := time.Now()
	diagnosis, err := rt.diagnoser.Diagnose(r.Context(), form, photos)
	if rt.metrics != nil {
		rt.metrics.RecordDiagnosis(serviceName, diagnosis, time.Since(start))
	}
	if err != nil {
		writeError(w, r, mapErrorToHTTPStatus(err), err)
		return
	}

	f, err := os.Open(diagnosis.ReportPath)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": diagnosis.ReportName}))
	http.ServeContent(w, r, diagnosis.ReportName, info.ModTime(), f)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

