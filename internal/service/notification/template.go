package notification

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// MessageData is what a template can reference.
type MessageData struct {
	StudentName string
	SectionName string
	Label       string
	Time        string
	Date        string
}

type templateSpec struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
}

// Renderer resolves a tenant override first and falls back to the embedded
// catalog.
type Renderer struct {
	repo     notification.TemplateRepository
	defaults map[notification.Kind]templateSpec
}

func NewRenderer(repo notification.TemplateRepository) (*Renderer, error) {
	defaults, err := parseCatalog(defaultTemplatesYAML)
	if err != nil {
		return nil, err
	}
	for _, kind := range notification.AllKinds() {
		if _, ok := defaults[kind]; !ok {
			return nil, fmt.Errorf("default template catalog is missing %q", kind)
		}
	}
	return &Renderer{repo: repo, defaults: defaults}, nil
}

func parseCatalog(raw []byte) (map[notification.Kind]templateSpec, error) {
	var catalog map[notification.Kind]templateSpec
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	return catalog, nil
}

// Render builds the message for kind.
func (r *Renderer) Render(ctx context.Context, tenantID string, kind notification.Kind, data MessageData) (notification.Message, error) {
	tmpl, err := r.lookup(ctx, tenantID, kind)
	if err != nil {
		return notification.Message{}, err
	}

	subject, err := execute(string(kind)+".subject", tmpl.Subject, data)
	if err != nil {
		return notification.Message{}, err
	}
	body, err := execute(string(kind)+".body", tmpl.Body, data)
	if err != nil {
		return notification.Message{}, err
	}
	return notification.Message{Subject: subject, Body: body}, nil
}

func (r *Renderer) lookup(ctx context.Context, tenantID string, kind notification.Kind) (templateSpec, error) {
	if r.repo != nil {
		override, err := r.repo.GetTemplate(ctx, tenantID, kind)
		switch {
		case err == nil:
			return templateSpec{Subject: override.Subject, Body: override.Body}, nil
		case !errors.Is(err, notification.ErrTemplateNotFound):
			return templateSpec{}, fmt.Errorf("failed to load template override: %w", err)
		}
	}

	tmpl, ok := r.defaults[kind]
	if !ok {
		return templateSpec{}, fmt.Errorf("%w: %s", notification.ErrTemplateNotFound, kind)
	}
	return tmpl, nil
}

func execute(name, text string, data MessageData) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
