// Package mailer renders account emails. Delivery is pluggable; LogMailer
// records the envelope of each message in the structured log.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/dmitrijs2005/sampleapp/internal/server/models"
)

type Mailer interface {
	SendActivation(ctx context.Context, u *models.User, token string) error
	SendPasswordReset(ctx context.Context, u *models.User, token string) error
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
}

var (
	activationTmpl = template.Must(template.New("activation").Parse(
		`Hi {{.Name}},

Welcome to the Sample App! Click on the link below to activate your account:

{{.Link}}
`))

	resetTmpl = template.Must(template.New("reset").Parse(
		`To reset your password click the link below:

{{.Link}}

This link will expire in {{.Expiry}}.

If you did not request your password to be reset, please ignore this email and
your password will stay as it is.
`))
)

type templateData struct {
	Name   string
	Link   string
	Expiry string
}

// Renderer builds account links under baseURL. resetValidity is quoted in
// the password reset message.
type Renderer struct {
	baseURL       string
	resetValidity time.Duration
}

func NewRenderer(baseURL string, resetValidity time.Duration) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/"), resetValidity: resetValidity}
}

// Activation renders the account activation message. The link carries the
// raw token in the path and the email as a query parameter.
func (r *Renderer) Activation(u *models.User, token string) (*Message, error) {
	body, err := render(activationTmpl, templateData{Name: u.Name, Link: r.link("account_activations", token, u.Email)})
	if err != nil {
		return nil, err
	}
	return &Message{To: u.Email, Subject: "Account activation", Body: body}, nil
}

func (r *Renderer) PasswordReset(u *models.User, token string) (*Message, error) {
	body, err := render(resetTmpl, templateData{
		Name:   u.Name,
		Link:   r.link("password_resets", token, u.Email),
		Expiry: humanDuration(r.resetValidity),
	})
	if err != nil {
		return nil, err
	}
	return &Message{To: u.Email, Subject: "Password reset", Body: body}, nil
}

func (r *Renderer) link(resource, token, email string) string {
	return fmt.Sprintf("%s/%s/%s/edit?%s", r.baseURL, resource, url.PathEscape(token),
		url.Values{"email": {email}}.Encode())
}

// humanDuration spells d in whole hours and minutes, e.g. "2 hours" or
// "1 hour 30 minutes".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	h, m := int(d/time.Hour), int((d%time.Hour)/time.Minute)

	parts := make([]string, 0, 2)
	if h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m > 0 {
		parts = append(parts, plural(m, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// LogMailer logs rendered messages instead of delivering them.
type LogMailer struct {
	renderer *Renderer
	log      logging.Logger
}

func NewLogMailer(baseURL string, resetValidity time.Duration, log logging.Logger) *LogMailer {
	return &LogMailer{renderer: NewRenderer(baseURL, resetValidity), log: log.With("module", "mailer")}
}

func (m *LogMailer) SendActivation(ctx context.Context, u *models.User, token string) error {
	msg, err := m.renderer.Activation(u, token)
	if err != nil {
		return err
	}
	m.deliver(ctx, u, msg)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, u *models.User, token string) error {
	msg, err := m.renderer.PasswordReset(u, token)
	if err != nil {
		return err
	}
	m.deliver(ctx, u, msg)
	return nil
}

// deliver records the message envelope. The body holds the raw token and is
// never logged.
func (m *LogMailer) deliver(ctx context.Context, u *models.User, msg *Message) {
	m.log.Info(ctx, "email sent", "user_id", u.ID, "to", msg.To, "subject", msg.Subject)
}
