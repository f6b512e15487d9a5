package domain

import "time"

type ReportInput struct {
	Form     IntakeForm
	Scores   ScoreSummary
	Findings []PhotoFinding
	Photos   []StoredPhoto
}

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

type OpKind string

const (
	OpText  OpKind = "text"
	OpTable OpKind = "table"
	OpImage OpKind = "image"
)

// DrawOp is a single positioned instruction. Coordinates are points from the top-left corner.
type DrawOp interface {
	Kind() OpKind
}

type TextRun struct {
	X    float64
	Text string
	Bold bool
}

type TextLine struct {
	Baseline float64
	Runs     []TextRun
}

type TextBlock struct {
	X, Y          float64
	Width, Height float64
	FontSize      float64
	Lines         []TextLine
}

func (TextBlock) Kind() OpKind { return OpText }

// PlainText joins the runs of every line with newlines.
func (b TextBlock) PlainText() string {
	var out []byte
	for i, line := range b.Lines {
		if i > 0 {
			out = append(out, '\n')
		}
		for _, run := range line.Runs {
			out = append(out, run.Text...)
		}
	}
	return string(out)
}

type TableCell struct {
	Row, Col      int
	X, Y          float64
	Width, Height float64
	Shaded        bool
	Text          TextBlock
}

type Table struct {
	X, Y          float64
	Width, Height float64
	Cells         []TableCell
}

func (Table) Kind() OpKind { return OpTable }

type ImageBox struct {
	X, Y          float64
	Width, Height float64
	Key           string
	MIMEType      string
}

func (ImageBox) Kind() OpKind { return OpImage }

type Page struct {
	Ops []DrawOp
}

type Report struct {
	Title      string
	PageWidth  float64
	PageHeight float64
	Pages      []Page
}

// Diagnosis is the outcome of a successful intake run. Failed findings degrade it
// without turning it into an error.
type Diagnosis struct {
	Scores     ScoreSummary   `json:"scores"`
	Findings   []PhotoFinding `json:"findings"`
	Photos     []StoredPhoto  `json:"photos"`
	ReportPath string         `json:"report_path"`
	ReportName string         `json:"report_name"`
}

func (d *Diagnosis) FailedFindings() int {
	failed := 0
	for _, finding := range d.Findings {
		if finding.Failed {
			failed++
		}
	}
	return failed
}

func (d *Diagnosis) Degraded() bool { return d.FailedFindings() > 0 }

// ReportGenerated is the event published after a report is written. It carries no
// patient identifiers.
type ReportGenerated struct {
	RiskLevel      RiskLevel `json:"risk_level"`
	Appliance      Appliance `json:"appliance"`
	MuscleScore    int       `json:"mfs_score"`
	AlignmentScore int       `json:"das_score"`
	PhotoCount     int       `json:"photo_count"`
	FailedFindings int       `json:"failed_findings"`
	GeneratedAt    time.Time `json:"generated_at"`
}
