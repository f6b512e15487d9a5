package report

import (
	"strings"
	"unicode"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
	"github.com/kirillkom/mrc-intake/internal/core/ports"
)

const (
	inch       = 72.0
	pageWidth  = 8.5 * inch
	pageHeight = 11 * inch
	margin     = 1 * inch
)

type textStyle struct {
	size    float64
	leading float64
	align   domain.Align
	// gap is the extra space between paragraphs of one block.
	gap float64
}

var (
	summaryTitle   = textStyle{size: 16, leading: 22, align: domain.AlignCenter}
	summaryHeading = textStyle{size: 12, leading: 18}
	summaryBody    = textStyle{size: 10, leading: 14, gap: 4}
	tableText      = textStyle{size: 10, leading: 14}

	narrativeTitle   = textStyle{size: 18, leading: 24, align: domain.AlignCenter}
	narrativeHeading = textStyle{size: 14, leading: 18}
	narrativeBody    = textStyle{size: 11, leading: 16, gap: 6}
)

type layouter struct {
	measure ports.TextMeasurer
}

type placedSpan struct {
	x    float64
	text string
	bold bool
}

type wrappedLine struct {
	spans []placedSpan
	width float64
}

func (l *wrappedLine) push(text string, bold bool, width float64) {
	if n := len(l.spans); n > 0 && l.spans[n-1].bold == bold {
		l.spans[n-1].text += text
	} else {
		l.spans = append(l.spans, placedSpan{x: l.width, text: text, bold: bold})
	}
	l.width += width
}

// block lays paragraphs out in a column of the given width, top edge at y.
func (l layouter) block(paragraphs []paragraph, x, y, width float64, style textStyle) domain.TextBlock {
	out := domain.TextBlock{X: x, Y: y, Width: width, FontSize: style.size}
	cursor := y
	for i, p := range paragraphs {
		if i > 0 {
			cursor += style.gap
		}
		for _, line := range l.wrap(p, width, style.size) {
			offset := 0.0
			if style.align == domain.AlignCenter && line.width < width {
				offset = (width - line.width) / 2
			}
			tl := domain.TextLine{Baseline: cursor + baseline(style)}
			for _, s := range line.spans {
				tl.Runs = append(tl.Runs, domain.TextRun{X: x + offset + s.x, Text: s.text, Bold: s.bold})
			}
			out.Lines = append(out.Lines, tl)
			cursor += style.leading
		}
	}
	out.Height = cursor - y
	return out
}

func baseline(style textStyle) float64 {
	return (style.leading-style.size)/2 + style.size*0.8
}

type token struct {
	text  string
	bold  bool
	space bool
	brk   bool
}

// wrap breaks a paragraph into lines no wider than width. Latin words break at spaces,
// CJK characters break anywhere and closing punctuation stays with the preceding character.
func (l layouter) wrap(p paragraph, width, size float64) []wrappedLine {
	var (
		lines   []wrappedLine
		cur     wrappedLine
		pending *token
	)
	flush := func() {
		lines = append(lines, cur)
		cur = wrappedLine{}
		pending = nil
	}

	for _, tok := range tokenize(p) {
		if tok.brk {
			flush()
			continue
		}
		if tok.space {
			if len(cur.spans) > 0 {
				t := tok
				pending = &t
			}
			continue
		}

		w := l.measure.TextWidth(tok.text, tok.bold, size)
		spaceWidth := 0.0
		if pending != nil {
			spaceWidth = l.measure.TextWidth(" ", pending.bold, size)
		}
		if len(cur.spans) > 0 && cur.width+spaceWidth+w > width {
			flush()
		}
		if pending != nil {
			cur.push(" ", pending.bold, spaceWidth)
			pending = nil
		}
		if len(cur.spans) == 0 && w > width {
			for _, r := range tok.text {
				rw := l.measure.TextWidth(string(r), tok.bold, size)
				if len(cur.spans) > 0 && cur.width+rw > width {
					flush()
				}
				cur.push(string(r), tok.bold, rw)
			}
			continue
		}
		cur.push(tok.text, tok.bold, w)
	}
	if len(cur.spans) > 0 || len(lines) == 0 {
		lines = append(lines, cur)
	}
	return lines
}

func tokenize(p paragraph) []token {
	var out []token
	for _, s := range p.spans {
		if s.brk {
			out = append(out, token{brk: true})
			continue
		}
		var word strings.Builder
		flushWord := func() {
			if word.Len() > 0 {
				out = append(out, token{text: word.String(), bold: s.bold})
				word.Reset()
			}
		}
		for _, r := range s.text {
			switch {
			case r == '\n':
				flushWord()
				out = append(out, token{brk: true})
			case unicode.IsSpace(r) && r != '　':
				flushWord()
				out = append(out, token{space: true, bold: s.bold})
			case isClosingPunct(r) && word.Len() > 0:
				word.WriteRune(r)
			case isClosingPunct(r) && len(out) > 0 && out[len(out)-1].text != "":
				out[len(out)-1].text += string(r)
			case isWide(r):
				flushWord()
				out = append(out, token{text: string(r), bold: s.bold})
			default:
				word.WriteRune(r)
			}
		}
		flushWord()
	}
	return out
}

func isWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) ||
		(r >= 0x3000 && r <= 0x303f) ||
		(r >= 0xff00 && r <= 0xffef)
}

func isClosingPunct(r rune) bool {
	return strings.ContainsRune("、。，．」』）】！？ー…・", r)
}

// table lays out a grid whose rows grow to fit their tallest cell.
// Cell text is vertically centred.
func (l layouter) table(rows [][][]paragraph, x, y float64, columns []float64, shaded map[int]bool, padding float64) domain.Table {
	out := domain.Table{X: x, Y: y}
	for _, w := range columns {
		out.Width += w
	}

	rowY := y
	for r, row := range rows {
		blocks := make([]domain.TextBlock, len(row))
		rowHeight := 0.0
		for c, cell := range row {
			blocks[c] = l.block(cell, 0, 0, columns[c]-2*padding, tableText)
			if h := blocks[c].Height + 2*padding; h > rowHeight {
				rowHeight = h
			}
		}

		cellX := x
		for c, cell := range row {
			top := rowY + (rowHeight-blocks[c].Height)/2
			out.Cells = append(out.Cells, domain.TableCell{
				Row:    r,
				Col:    c,
				X:      cellX,
				Y:      rowY,
				Width:  columns[c],
				Height: rowHeight,
				Shaded: shaded[c],
				Text:   l.block(cell, cellX+padding, top, columns[c]-2*padding, tableText),
			})
			cellX += columns[c]
		}
		rowY += rowHeight
	}
	out.Height = rowY - y
	return out
}
