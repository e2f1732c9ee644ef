package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/layer-3/gatekeeper/core"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[core.EmailTemplate]string{
	core.TemplateVerification:  "Email verification",
	core.TemplateResetPassword: "Reset password",
}

// Renderer turns an email request into a subject and an HTML body.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes the template named by email.Template.
func (r *Renderer) Render(email core.Email) (subject, body string, err error) {
	subject, ok := subjects[email.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", email.Template)
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, string(email.Template)+".html", email.Variables); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", email.Template, err)
	}
	return subject, buf.String(), nil
}
