package report

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/mrc-intake/internal/core/domain"
)

//go:embed locale/ja.yaml
var defaultCatalogYAML []byte

var requiredTemplates = []string{
	"summary.title",
	"summary.label.name", "summary.label.age", "summary.label.risk",
	"summary.label.appliance", "summary.label.mfs", "summary.label.das",
	"summary.value.name", "summary.value.age", "summary.value.risk",
	"summary.value.appliance", "summary.value.mfs", "summary.value.das",
	"summary.findings.heading", "summary.findings.item", "summary.findings.none",
	"summary.notes.heading", "summary.notes.mfs", "summary.notes.das", "summary.notes.other",
	"narrative.title",
	"narrative.now.heading", "narrative.now.body",
	"narrative.photo.caption",
	"narrative.cause.heading", "narrative.cause.body",
	"narrative.solution.heading", "narrative.solution.body",
	"narrative.future.heading", "narrative.future.body",
}

// Catalog holds the report copy of the fixed locale.
type Catalog struct {
	riskLevels map[domain.RiskLevel]string
	appliances map[domain.Appliance]string
	templates  map[string]*template.Template
}

type catalogFile struct {
	RiskLevels map[domain.RiskLevel]string `yaml:"risk_levels"`
	Appliances map[domain.Appliance]string `yaml:"appliances"`
	Templates  map[string]string           `yaml:"templates"`
}

// copyData is the template context shared by every catalog entry.
type copyData struct {
	Name           string
	Age            int
	Risk           string
	Appliance      string
	MuscleScore    int
	AlignmentScore int
	MuscleItems    string
	AlignmentItems string
	OtherFindings  string
	View           string
	Analysis       string
}

func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultCatalogYAML)
}

func LoadCatalog(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse report catalog: %w", err)
	}

	funcs := template.FuncMap{"md": escapeMarkdown}
	templates := make(map[string]*template.Template, len(requiredTemplates))
	for _, key := range requiredTemplates {
		src, ok := file.Templates[key]
		if !ok {
			return nil, fmt.Errorf("report catalog: missing template %q", key)
		}
		tmpl, err := template.New(key).Funcs(funcs).Option("missingkey=error").Parse(strings.TrimRight(src, "\n"))
		if err != nil {
			return nil, fmt.Errorf("report catalog: template %q: %w", key, err)
		}
		templates[key] = tmpl
	}

	return &Catalog{
		riskLevels: file.RiskLevels,
		appliances: file.Appliances,
		templates:  templates,
	}, nil
}

func (c *Catalog) text(key string, data copyData) (string, error) {
	tmpl, ok := c.templates[key]
	if !ok {
		return "", fmt.Errorf("report catalog: unknown template %q", key)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("report catalog: execute %q: %w", key, err)
	}
	return b.String(), nil
}

func (c *Catalog) RiskLabel(level domain.RiskLevel) string {
	if label, ok := c.riskLevels[level]; ok {
		return label
	}
	return string(level)
}

func (c *Catalog) ApplianceLabel(appliance domain.Appliance) string {
	if label, ok := c.appliances[appliance]; ok {
		return label
	}
	return string(appliance)
}

// escapeMarkdown backslash-escapes ASCII punctuation so user text renders literally.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune("\\`*_{}[]()#+-.!<>|~&", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
