package usecase

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
)

const analysisErrorPrefix = "AI画像解析中にエラーが発生しました: "

// storePhotos persists every supplied photo in view order. A later upload with the same
// file name replaces the earlier file.
func (uc *DiagnoseUseCase) storePhotos(ctx context.Context, photos domain.PhotoSet) ([]domain.StoredPhoto, error) {
	views := photos.Present()
	stored := make([]domain.StoredPhoto, 0, len(views))
	for _, view := range views {
		photo := photos[view]
		key := sanitizeFilename(photo.Filename)
		if err := uc.storage.Save(ctx, key, bytes.NewReader(photo.Data)); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "save photo "+string(view), err)
		}

		sp := domain.StoredPhoto{
			View:     view,
			Key:      key,
			MIMEType: detectMIMEType(photo),
		}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(photo.Data)); err == nil {
			sp.Width, sp.Height = cfg.Width, cfg.Height
		}
		stored = append(stored, sp)
	}
	return stored, nil
}

// collectFindings calls the analyzer once per stored photo. Failures become placeholder
// findings; the slice always follows view order.
func (uc *DiagnoseUseCase) collectFindings(ctx context.Context, photos domain.PhotoSet, stored []domain.StoredPhoto) []domain.PhotoFinding {
	findings := make([]domain.PhotoFinding, len(stored))

	if uc.parallelism < 2 {
		for i, sp := range stored {
			findings[i] = uc.analyze(ctx, sp, photos[sp.View].Data)
		}
		return findings
	}

	var group errgroup.Group
	group.SetLimit(uc.parallelism)
	for i, sp := range stored {
		group.Go(func() error {
			findings[i] = uc.analyze(ctx, sp, photos[sp.View].Data)
			return nil
		})
	}
	_ = group.Wait()
	return findings
}

func (uc *DiagnoseUseCase) analyze(ctx context.Context, sp domain.StoredPhoto, data []byte) domain.PhotoFinding {
	label := sp.View.Label()
	finding := domain.PhotoFinding{View: sp.View, Label: label}

	text, err := uc.analyzer.AnalyzePhoto(ctx, domain.PhotoAnalysisRequest{
		View:     sp.View,
		Label:    label,
		MIMEType: sp.MIMEType,
		Data:     data,
	})
	if err != nil {
		slog.Warn("photo_analysis_failed", "view", string(sp.View), "error", err.Error())
		finding.Failed = true
		finding.Reason = err.Error()
		finding.Analysis = errorPlaceholder(err)
		return finding
	}

	slog.Debug("photo_analysis_done", "view", string(sp.View), "chars", len(text))
	finding.Analysis = text
	return finding
}

func detectMIMEType(photo domain.Photo) string {
	sniffed := http.DetectContentType(photo.Data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if ct := strings.TrimSpace(photo.ContentType); ct != "" {
		return ct
	}
	return sniffed
}

// sanitizeFilename keeps the supplied name but strips directories and characters that
// are unsafe in a single path element. Non-ASCII names are kept as is.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		default:
			return r
		}
	}, base)
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." {
		return "photo.bin"
	}
	return base
}

func errorPlaceholder(err error) string {
	return fmt.Sprintf("%s%v", analysisErrorPrefix, err)
}
