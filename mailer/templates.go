package mailer

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
)

// Template is a named email subject and body
type Template struct {
	Subject string
	Body    string
}

const confirmationText = `
Welcome, {{.Username}}!

Click the link below to confirm your email address.

{{.Link}}

You are receiving this notification because this email address was used to
register an account. If you did not perform this action, please ignore
this email.
`

const passwordResetText = `
Hi {{.Username}},

Click the link below to choose a new password.

{{.Link}}
{{- if .ExpiresAt}}

The link expires on {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}.
{{- end}}

You are receiving this notification because a password reset was requested
for this email address. If you did not perform this action, please ignore
this email.
`

// DefaultTemplates returns the built in templates keyed by template ID
func DefaultTemplates() map[string]Template {
	return map[string]Template{
		accounts.TemplateAccountConfirmation: {
			Subject: "Confirm Your Email",
			Body:    confirmationText,
		},
		accounts.TemplatePasswordReset: {
			Subject: "Reset Your Password",
			Body:    passwordResetText,
		},
	}
}

// templateData is exposed to templates
type templateData struct {
	Username  string
	Email     string
	Link      string
	Token     string
	ExpiresAt *time.Time
	Data      map[string]any
}

// Renderer turns notifications into email subjects and bodies
type Renderer struct {
	baseURL   string
	templates map[string]*template.Template
	subjects  map[string]string
}

// NewRenderer parses templates. Links are built on top of baseURL.
func NewRenderer(baseURL string, templates map[string]Template) (*Renderer, error) {
	r := &Renderer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		templates: make(map[string]*template.Template, len(templates)),
		subjects:  make(map[string]string, len(templates)),
	}

	for id, tpl := range templates {
		t, err := template.New(id).Parse(tpl.Body)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse email template").
				WithMetadata(map[string]any{"template": id})
		}
		r.templates[id] = t
		r.subjects[id] = tpl.Subject
	}

	return r, nil
}

// Render returns the subject and body for templateID
func (r *Renderer) Render(templateID string, payload accounts.Notification) (string, string, error) {
	t, ok := r.templates[templateID]
	if !ok {
		return "", "", goerrors.New("unknown email template", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithMetadata(map[string]any{"template": templateID})
	}

	data := templateData{
		Username: payload.Username,
		Email:    payload.To,
		Data:     payload.Data,
	}

	switch templateID {
	case accounts.TemplateAccountConfirmation:
		data.Token = stringValue(payload.Data, "confirmation_code")
		data.Link = r.link("/accounts/confirm/{token}", data.Token)
	case accounts.TemplatePasswordReset:
		data.Token = stringValue(payload.Data, "reset_token")
		data.Link = r.link("/accounts/password-reset/{token}", data.Token)
		data.ExpiresAt = expiresAt(payload.Data)
	}

	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template").
			WithMetadata(map[string]any{"template": templateID})
	}

	return r.subjects[templateID], b.String(), nil
}

func (r *Renderer) link(pattern, token string) string {
	return r.baseURL + strings.Replace(pattern, "{token}", token, 1)
}

func stringValue(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func expiresAt(data map[string]any) *time.Time {
	switch v := data["expires_at"].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	}
	return nil
}
