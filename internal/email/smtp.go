package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
)

//go:embed templates
var templateFS embed.FS

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	SiteName string
}

type SMTPProvider struct {
	cfg  Config
	tmpl *template.Template
}

func NewSMTP(cfg Config) (*SMTPProvider, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &SMTPProvider{cfg: cfg, tmpl: tmpl}, nil
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := net.JoinHostPort(p.cfg.Host, p.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to[0], subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.cfg.From, to, msg)
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["site_name"]; !ok {
		data["site_name"] = p.cfg.SiteName
	}

	var body bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return fmt.Errorf("execute email template: %w", err)
	}

	subject := p.subjectFor(templateName, data)
	return p.Send(ctx, to, subject, body.String())
}

func (p *SMTPProvider) subjectFor(templateName string, data map[string]any) string {
	if subj, ok := data["subject"].(string); ok && subj != "" {
		return subj
	}
	site := p.cfg.SiteName
	switch templateName {
	case "membership_welcome":
		return fmt.Sprintf("Welcome to %s", site)
	case "membership_cancelled":
		return fmt.Sprintf("Your %s membership has been cancelled", site)
	case "membership_expired":
		return fmt.Sprintf("Your %s membership has expired", site)
	case "membership_reminder":
		return fmt.Sprintf("Your %s membership expires soon", site)
	default:
		return fmt.Sprintf("Notification from %s", site)
	}
}
