package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Debt {{.EventLabel}}]
Unit: {{.Unit}}
Charge: {{.Charge}}
Amount: {{.Amount}}
Outstanding: {{.Outstanding}}
Due Date: {{.DueDate}}
Current Status: {{.Status}}
Suggestion: {{.Suggestion}}`

// TemplateData provides fields for rendering reminder content.
type TemplateData struct {
	Unit        string
	UnitID      string
	Charge      string
	ChargeID    string
	Amount      string
	Outstanding string
	DueDate     string
	Status      string
	Suggestion  string
	Event       string
	EventLabel  string
}

// Template renders reminder content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a reminder template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("debt-reminder").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("reminder template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
