package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-pdf/fpdf"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
	"github.com/kirillkom/mrc-intake/internal/core/ports"
)

const fallbackFamily = "Helvetica"

// Engine creates fpdf documents. The font file is read once; every document registers it
// for both weights.
type Engine struct {
	family string
	font   []byte
	photos ports.PhotoStorage
}

// NewEngine loads the TTF at fontPath. A missing or unreadable font is not fatal: documents
// fall back to Helvetica, which cannot show Japanese text.
func NewEngine(fontPath, family string, photos ports.PhotoStorage) *Engine {
	e := &Engine{family: fallbackFamily, photos: photos}
	font, err := os.ReadFile(fontPath)
	if err != nil {
		slog.Warn("report_font_unavailable", "path", fontPath, "fallback", fallbackFamily, "error", err)
		return e
	}
	e.family = family
	e.font = font
	return e
}

func (e *Engine) Family() string { return e.family }

func (e *Engine) NewDocument() (ports.Document, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if e.font != nil {
		pdf.AddUTF8FontFromBytes(e.family, "", e.font)
		pdf.AddUTF8FontFromBytes(e.family, "B", e.font)
	}
	if pdf.Err() {
		return nil, fmt.Errorf("register font %s: %w", e.family, pdf.Error())
	}
	return &document{
		pdf:      pdf,
		family:   e.family,
		fauxBold: e.font != nil,
		photos:   e.photos,
		images:   make(map[string]bool),
	}, nil
}

type document struct {
	pdf    *fpdf.Fpdf
	family string
	// fauxBold overstrikes bold runs; the embedded face has a single weight.
	fauxBold bool
	photos   ports.PhotoStorage
	images   map[string]bool
}

func (d *document) setFont(bold bool, size float64) {
	style := ""
	if bold {
		style = "B"
	}
	d.pdf.SetFont(d.family, style, size)
}

func (d *document) TextWidth(text string, bold bool, size float64) float64 {
	d.setFont(bold, size)
	return d.pdf.GetStringWidth(text)
}

func (d *document) Write(ctx context.Context, rep domain.Report, path string) error {
	d.pdf.SetTitle(rep.Title, true)
	d.pdf.SetCreator("mrc-intake", true)

	for _, page := range rep.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.pdf.AddPageFormat("P", fpdf.SizeType{Wd: rep.PageWidth, Ht: rep.PageHeight})
		for _, op := range page.Ops {
			switch v := op.(type) {
			case domain.TextBlock:
				d.drawText(v)
			case domain.Table:
				d.drawTable(v)
			case domain.ImageBox:
				d.drawImage(ctx, v)
			default:
				return fmt.Errorf("unsupported draw op %q", op.Kind())
			}
		}
		if d.pdf.Err() {
			return d.pdf.Error()
		}
	}

	return d.pdf.OutputFileAndClose(path)
}

func (d *document) drawText(block domain.TextBlock) {
	d.pdf.SetTextColor(0, 0, 0)
	for _, line := range block.Lines {
		for _, run := range line.Runs {
			d.setFont(run.Bold, block.FontSize)
			d.pdf.Text(run.X, line.Baseline, run.Text)
			if run.Bold && d.fauxBold {
				d.pdf.Text(run.X+block.FontSize*0.04, line.Baseline, run.Text)
			}
		}
	}
}

func (d *document) drawTable(table domain.Table) {
	d.pdf.SetDrawColor(0, 0, 0)
	d.pdf.SetLineWidth(0.75)
	for _, cell := range table.Cells {
		if cell.Shaded {
			d.pdf.SetFillColor(211, 211, 211)
			d.pdf.Rect(cell.X, cell.Y, cell.Width, cell.Height, "FD")
		} else {
			d.pdf.Rect(cell.X, cell.Y, cell.Width, cell.Height, "D")
		}
		d.drawText(cell.Text)
	}
}

var imageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
}

func (d *document) PrepareImage(ctx context.Context, key, mimeType string) error {
	if d.images[key] {
		return nil
	}
	imageType, ok := imageTypes[mimeType]
	if !ok {
		return fmt.Errorf("unsupported image type %q", mimeType)
	}
	if d.photos == nil {
		return errors.New("no photo storage")
	}
	rc, err := d.photos.Open(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	d.pdf.RegisterImageOptionsReader(key, fpdf.ImageOptions{ImageType: imageType}, rc)
	if d.pdf.Err() {
		err := d.pdf.Error()
		d.pdf.ClearError()
		return fmt.Errorf("register image %s: %w", key, err)
	}
	d.images[key] = true
	return nil
}

// drawImage skips the image on any failure; the rest of the page is still written.
func (d *document) drawImage(ctx context.Context, box domain.ImageBox) {
	if err := d.PrepareImage(ctx, box.Key, box.MIMEType); err != nil {
		slog.Warn("report_image_skipped", "key", box.Key, "mime_type", box.MIMEType, "error", err)
		return
	}
	d.pdf.ImageOptions(box.Key, box.X, box.Y, box.Width, box.Height, false, fpdf.ImageOptions{ImageType: imageTypes[box.MIMEType]}, 0, "")
}
