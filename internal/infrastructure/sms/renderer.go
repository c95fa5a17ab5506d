package sms

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/avatarctic/phone-confirmation/internal/core/domain/identity"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
)

// DefaultMessageTemplate is used when no template is configured.
const DefaultMessageTemplate = "{{.CompanyName}}: your confirmation code is {{.Token}}"

// ConfirmationMessageData holds data for the confirmation message template
type ConfirmationMessageData struct {
	CompanyName    string
	Token          string
	Phone          string
	Reconfirmation bool
}

// TemplateRenderer implements ports.MessageRenderer with text/template
type TemplateRenderer struct {
	companyName string
	tmpl        *template.Template
}

// NewTemplateRenderer parses the configured message template
func NewTemplateRenderer(config *SMSConfig) (*TemplateRenderer, error) {
	text := config.MessageTemplate
	if text == "" {
		text = DefaultMessageTemplate
	}
	tmpl, err := template.New("confirmation").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message template: %w", err)
	}
	return &TemplateRenderer{companyName: config.CompanyName, tmpl: tmpl}, nil
}

var _ ports.MessageRenderer = (*TemplateRenderer)(nil)

// RenderConfirmation renders the message sent for token
func (r *TemplateRenderer) RenderConfirmation(ident *identity.Identity, token string) (string, error) {
	data := ConfirmationMessageData{
		CompanyName:    r.companyName,
		Token:          token,
		Phone:          ident.NotificationTarget(),
		Reconfirmation: ident.HasPendingPhoneChange(),
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute message template: %w", err)
	}
	return buf.String(), nil
}
