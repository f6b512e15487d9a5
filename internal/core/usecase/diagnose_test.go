package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
)

type storageFake struct {
	mu    sync.Mutex
	saved map[string][]byte
	order []string
	err   error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[key] = raw
	f.order = append(f.order, key)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type analyzerFake struct {
	mu       sync.Mutex
	failFor  map[domain.View]error
	delays   map[domain.View]time.Duration
	requests []domain.PhotoAnalysisRequest
}

func (f *analyzerFake) AnalyzePhoto(_ context.Context, req domain.PhotoAnalysisRequest) (string, error) {
	if d := f.delays[req.View]; d > 0 {
		time.Sleep(d)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := f.failFor[req.View]; err != nil {
		return "", err
	}
	return "- finding for " + req.Label, nil
}

type rendererFake struct {
	input domain.ReportInput
	calls int
	err   error
}

func (f *rendererFake) Render(_ context.Context, in domain.ReportInput) (string, error) {
	f.calls++
	f.input = in
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("/tmp/reports/diagnosis_report_%s_%d.pdf", in.Form.Patient.Name, in.Form.Patient.Age), nil
}

type publisherFake struct {
	events []domain.ReportGenerated
	err    error
}

func (f *publisherFake) PublishReportGenerated(_ context.Context, event domain.ReportGenerated) error {
	f.events = append(f.events, event)
	return f.err
}

func testForm() domain.IntakeForm {
	return domain.IntakeForm{
		Patient: domain.Patient{Name: "Hanako", Age: 8},
		Questionnaire: domain.Questionnaire{
			MouthBreathing: domain.AnswerYes,
			TongueThrust:   domain.AnswerYes,
		},
		Exam: domain.OralExam{
			UpperJaw: domain.JawCrowding,
			LowerJaw: domain.JawNormal,
		},
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestDiagnoseWithoutPhotos(t *testing.T) {
	storage := newStorageFake()
	analyzer := &analyzerFake{}
	renderer := &rendererFake{}
	uc := NewDiagnoseUseCase(storage, analyzer, renderer)

	diagnosis, err := uc.Diagnose(context.Background(), testForm(), domain.PhotoSet{})
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	if len(diagnosis.Findings) != 0 {
		t.Fatalf("expected no findings, got %d", len(diagnosis.Findings))
	}
	if len(storage.saved) != 0 || len(analyzer.requests) != 0 {
		t.Fatalf("expected no storage or analyzer calls")
	}
	if renderer.calls != 1 || len(renderer.input.Findings) != 0 || len(renderer.input.Photos) != 0 {
		t.Fatalf("unexpected render input: %+v", renderer.input)
	}
	if diagnosis.Scores.Risk != domain.RiskHigh || diagnosis.Scores.Appliance != domain.ApplianceT4K {
		t.Fatalf("unexpected scores: %+v", diagnosis.Scores)
	}
	if diagnosis.ReportName != "diagnosis_report_Hanako_8.pdf" {
		t.Fatalf("unexpected report name %q", diagnosis.ReportName)
	}
	if diagnosis.Degraded() {
		t.Fatalf("expected non-degraded diagnosis")
	}
}

func TestDiagnoseFailedAnalysisBecomesPlaceholder(t *testing.T) {
	storage := newStorageFake()
	analyzer := &analyzerFake{failFor: map[domain.View]error{
		domain.ViewUpperOcclusal: errors.New("quota exceeded"),
	}}
	renderer := &rendererFake{}
	uc := NewDiagnoseUseCase(storage, analyzer, renderer)

	photos := domain.PhotoSet{
		domain.ViewLeftLateral:   {Filename: "left.png", Data: pngBytes(t, 4, 2)},
		domain.ViewFront:         {Filename: "front.png", Data: pngBytes(t, 8, 6)},
		domain.ViewUpperOcclusal: {Filename: "upper.png", Data: pngBytes(t, 2, 2)},
	}
	diagnosis, err := uc.Diagnose(context.Background(), testForm(), photos)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}

	if len(diagnosis.Findings) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(diagnosis.Findings))
	}
	wantViews := []domain.View{domain.ViewFront, domain.ViewUpperOcclusal, domain.ViewLeftLateral}
	for i, view := range wantViews {
		if diagnosis.Findings[i].View != view {
			t.Fatalf("finding %d: expected view %s, got %s", i, view, diagnosis.Findings[i].View)
		}
	}

	failed := diagnosis.Findings[1]
	if !failed.Failed || !strings.Contains(failed.Analysis, "quota exceeded") {
		t.Fatalf("expected placeholder with reason, got %+v", failed)
	}
	if !strings.HasPrefix(failed.Analysis, analysisErrorPrefix) {
		t.Fatalf("expected placeholder prefix, got %q", failed.Analysis)
	}
	for _, i := range []int{0, 2} {
		if diagnosis.Findings[i].Failed || !strings.Contains(diagnosis.Findings[i].Analysis, "finding for") {
			t.Fatalf("sibling finding %d affected: %+v", i, diagnosis.Findings[i])
		}
	}
	if !diagnosis.Degraded() || diagnosis.FailedFindings() != 1 {
		t.Fatalf("expected one failed finding")
	}
	if renderer.calls != 1 {
		t.Fatalf("expected report to be rendered once, got %d", renderer.calls)
	}
}

func TestDiagnoseStoresPhotosWithSize(t *testing.T) {
	storage := newStorageFake()
	renderer := &rendererFake{}
	uc := NewDiagnoseUseCase(storage, &analyzerFake{}, renderer)

	photos := domain.PhotoSet{
		domain.ViewFront:        {Filename: "../../etc/front.png", Data: pngBytes(t, 40, 30)},
		domain.ViewRightLateral: {Filename: "right.heic", ContentType: "image/heic", Data: []byte("not-an-image")},
	}
	diagnosis, err := uc.Diagnose(context.Background(), testForm(), photos)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}

	if len(diagnosis.Photos) != 2 {
		t.Fatalf("expected 2 stored photos, got %d", len(diagnosis.Photos))
	}
	front := diagnosis.Photos[0]
	if front.Key != "front.png" || front.Width != 40 || front.Height != 30 || front.MIMEType != "image/png" {
		t.Fatalf("unexpected front photo: %+v", front)
	}
	right := diagnosis.Photos[1]
	if right.HasSize() || right.MIMEType != "image/heic" {
		t.Fatalf("unexpected undecodable photo: %+v", right)
	}
	if _, ok := storage.saved["front.png"]; !ok {
		t.Fatalf("expected sanitized key, saved=%v", storage.order)
	}
}

func TestDiagnoseParallelAnalysisKeepsViewOrder(t *testing.T) {
	analyzer := &analyzerFake{delays: map[domain.View]time.Duration{
		domain.ViewFront:         30 * time.Millisecond,
		domain.ViewUpperOcclusal: 20 * time.Millisecond,
		domain.ViewLowerOcclusal: 10 * time.Millisecond,
	}}
	uc := NewDiagnoseUseCase(newStorageFake(), analyzer, &rendererFake{}, WithAnalysisParallelism(3))

	photos := domain.PhotoSet{}
	for _, view := range domain.Views {
		photos[view] = domain.Photo{Filename: string(view) + ".png", Data: pngBytes(t, 2, 2)}
	}
	diagnosis, err := uc.Diagnose(context.Background(), testForm(), photos)
	if err != nil {
		t.Fatalf("Diagnose() error = %v", err)
	}
	for i, view := range domain.Views {
		if diagnosis.Findings[i].View != view {
			t.Fatalf("finding %d: expected %s, got %s", i, view, diagnosis.Findings[i].View)
		}
		if !strings.Contains(diagnosis.Findings[i].Analysis, view.Label()) {
			t.Fatalf("finding %d carries wrong analysis: %q", i, diagnosis.Findings[i].Analysis)
		}
	}
}

func TestDiagnoseStorageFailureIsFatal(t *testing.T) {
	storage := newStorageFake()
	storage.err = errors.New("disk full")
	renderer := &rendererFake{}
	uc := NewDiagnoseUseCase(storage, &analyzerFake{}, renderer)

	_, err := uc.Diagnose(context.Background(), testForm(), domain.PhotoSet{
		domain.ViewFront: {Filename: "front.png", Data: []byte("x")},
	})
	if !domain.IsKind(err, domain.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if renderer.calls != 0 {
		t.Fatalf("renderer must not run after storage failure")
	}
}

func TestDiagnoseRenderFailureIsDistinctError(t *testing.T) {
	renderer := &rendererFake{err: errors.New("font table corrupt")}
	uc := NewDiagnoseUseCase(newStorageFake(), &analyzerFake{}, renderer)

	_, err := uc.Diagnose(context.Background(), testForm(), domain.PhotoSet{})
	if !domain.IsKind(err, domain.ErrRenderFailed) {
		t.Fatalf("expected render failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "font table corrupt") {
		t.Fatalf("expected cause in error, got %v", err)
	}
}

func TestDiagnosePublishesReportEvent(t *testing.T) {
	publisher := &publisherFake{err: errors.New("nats down")}
	analyzer := &analyzerFake{failFor: map[domain.View]error{domain.ViewFront: errors.New("boom")}}
	uc := NewDiagnoseUseCase(newStorageFake(), analyzer, &rendererFake{}, WithEventPublisher(publisher))
	fixed := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	diagnosis, err := uc.Diagnose(context.Background(), testForm(), domain.PhotoSet{
		domain.ViewFront: {Filename: "front.png", Data: pngBytes(t, 2, 2)},
	})
	if err != nil {
		t.Fatalf("publish failure must not fail the diagnosis, got %v", err)
	}
	if diagnosis == nil || len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.RiskLevel != domain.RiskHigh || event.PhotoCount != 1 || event.FailedFindings != 1 || !event.GeneratedAt.Equal(fixed) {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"front.jpg":          "front.jpg",
		"dir/sub/photo.png":  "photo.png",
		`C:\photos\left.jpg`: "left.jpg",
		"正面.jpg":             "正面.jpg",
		"a:b?.png":           "a_b_.png",
		"..":                 "photo.bin",
		"":                   "photo.bin",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
