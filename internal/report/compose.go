package report

import (
	"strings"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
	"github.com/kirillkom/mrc-intake/internal/core/ports"
)

const (
	summaryTableBottom = 2.5 * inch
	findingsTop        = 3.5 * inch
	sectionStep        = 0.4 * inch
	findingIndent      = 1.1 * inch
	narrativeTop       = 2.5 * inch
	photoLeft          = 1.5 * inch
	photoWidth         = 3 * inch
	tablePadding       = 5
	headingSpacing     = 10
	bodySpacing        = 20
)

// summaryColumns are the table column widths; label columns are 0 and 2.
var summaryColumns = []float64{1.4 * inch, 1.6 * inch, 1.6 * inch, 1.9 * inch}

type composer struct {
	layout  layouter
	catalog *Catalog
	data    copyData
	report  domain.Report
	y       float64
	err     error
}

// Compose lays out the clinician summary and the guardian narrative at absolute positions.
func Compose(measure ports.TextMeasurer, catalog *Catalog, in domain.ReportInput) (domain.Report, error) {
	c := &composer{
		layout:  layouter{measure: measure},
		catalog: catalog,
		data: copyData{
			Name:           in.Form.Patient.Name,
			Age:            in.Form.Patient.Age,
			Risk:           catalog.RiskLabel(in.Scores.Risk),
			Appliance:      catalog.ApplianceLabel(in.Scores.Appliance),
			MuscleScore:    in.Scores.MuscleScore,
			AlignmentScore: in.Scores.AlignmentScore,
			MuscleItems:    strings.Join(in.Scores.MuscleItems, ", "),
			AlignmentItems: strings.Join(in.Scores.AlignmentItems, ", "),
			OtherFindings:  in.Form.Exam.OtherFindings,
		},
		report: domain.Report{
			Title:      "MRC診断レポート",
			PageWidth:  pageWidth,
			PageHeight: pageHeight,
		},
	}

	c.summary(in.Findings)
	c.narrative(narrativePhoto(in.Photos, in.Findings))
	if c.err != nil {
		return domain.Report{}, c.err
	}
	return c.report, nil
}

func (c *composer) summary(findings []domain.PhotoFinding) {
	c.newPage()
	c.place(c.copyText("summary.title"), margin, pageWidth-2*margin, summaryTitle)

	rows := [][][]paragraph{
		{c.copyText("summary.label.name"), c.copyText("summary.value.name"), c.copyText("summary.label.age"), c.copyText("summary.value.age")},
		{c.copyText("summary.label.risk"), c.copyText("summary.value.risk"), c.copyText("summary.label.appliance"), c.copyText("summary.value.appliance")},
		{c.copyText("summary.label.mfs"), c.copyText("summary.value.mfs"), c.copyText("summary.label.das"), c.copyText("summary.value.das")},
	}
	shaded := map[int]bool{0: true, 2: true}
	probe := c.layout.table(rows, margin, 0, summaryColumns, shaded, tablePadding)
	c.add(c.layout.table(rows, margin, summaryTableBottom-probe.Height, summaryColumns, shaded, tablePadding))

	c.y = findingsTop
	c.flow(c.copyText("summary.findings.heading"), margin, pageWidth-2*margin, summaryHeading)
	c.y += sectionStep

	if len(findings) == 0 {
		c.flow(c.copyText("summary.findings.none"), findingIndent, pageWidth-2*findingIndent, summaryBody)
		c.y += sectionStep
	}
	for _, finding := range findings {
		data := c.data
		data.View = finding.Label
		data.Analysis = finding.Analysis
		block := c.flow(c.copyWith("summary.findings.item", data), findingIndent, pageWidth-2*findingIndent, summaryBody)
		c.y += block.Height + headingSpacing
	}

	c.y += sectionStep
	c.flow(c.copyText("summary.notes.heading"), margin, pageWidth-2*margin, summaryHeading)
	c.y += sectionStep

	notes := []string{"summary.notes.mfs", "summary.notes.das"}
	if strings.TrimSpace(c.data.OtherFindings) != "" {
		notes = append(notes, "summary.notes.other")
	}
	for _, key := range notes {
		block := c.flow(c.copyText(key), findingIndent, pageWidth-2*findingIndent, summaryBody)
		c.y += block.Height + headingSpacing
	}
}

func (c *composer) narrative(photo *domain.StoredPhoto) {
	c.newPage()
	width := pageWidth - 2*margin
	c.place(c.copyText("narrative.title"), margin, width, narrativeTitle)

	c.y = narrativeTop
	c.section("narrative.now.heading", "narrative.now.body")

	if photo != nil {
		height := photoWidth * float64(photo.Height) / float64(photo.Width)
		c.add(domain.ImageBox{
			X:        photoLeft,
			Y:        c.y,
			Width:    photoWidth,
			Height:   height,
			Key:      photo.Key,
			MIMEType: photo.MIMEType,
		})
		c.y += height + headingSpacing
		caption := c.place(c.copyText("narrative.photo.caption"), margin, width, narrativeBody)
		c.y += caption.Height + bodySpacing
	}

	c.section("narrative.cause.heading", "narrative.cause.body")
	c.section("narrative.solution.heading", "narrative.solution.body")
	c.section("narrative.future.heading", "narrative.future.body")
}

func (c *composer) section(headingKey, bodyKey string) {
	width := pageWidth - 2*margin
	heading := c.place(c.copyText(headingKey), margin, width, narrativeHeading)
	c.y += heading.Height + headingSpacing
	body := c.place(c.copyText(bodyKey), margin, width, narrativeBody)
	c.y += body.Height + bodySpacing
}

// place puts a block at the cursor without moving it.
func (c *composer) place(paragraphs []paragraph, x, width float64, style textStyle) domain.TextBlock {
	block := c.layout.block(paragraphs, x, c.y, width, style)
	c.add(block)
	return block
}

// flow is place with a bottom-margin check: a block that would cross it starts a new page.
func (c *composer) flow(paragraphs []paragraph, x, width float64, style textStyle) domain.TextBlock {
	block := c.layout.block(paragraphs, x, c.y, width, style)
	if c.y+block.Height > pageHeight-margin {
		c.newPage()
		block = c.layout.block(paragraphs, x, c.y, width, style)
	}
	c.add(block)
	return block
}

func (c *composer) newPage() {
	c.report.Pages = append(c.report.Pages, domain.Page{})
	c.y = margin
}

func (c *composer) add(op domain.DrawOp) {
	page := &c.report.Pages[len(c.report.Pages)-1]
	page.Ops = append(page.Ops, op)
}

func (c *composer) copyText(key string) []paragraph {
	return c.copyWith(key, c.data)
}

func (c *composer) copyWith(key string, data copyData) []paragraph {
	if c.err != nil {
		return nil
	}
	src, err := c.catalog.text(key, data)
	if err != nil {
		c.err = err
		return nil
	}
	return parseMarkdown(src)
}

// narrativePhoto is the first sized photo whose analysis succeeded. The caption points
// at what the model found, so photos without a finding are never shown.
func narrativePhoto(photos []domain.StoredPhoto, findings []domain.PhotoFinding) *domain.StoredPhoto {
	analyzed := make(map[domain.View]bool, len(findings))
	for _, finding := range findings {
		if !finding.Failed {
			analyzed[finding.View] = true
		}
	}
	for i := range photos {
		if photos[i].HasSize() && analyzed[photos[i].View] {
			return &photos[i]
		}
	}
	return nil
}
