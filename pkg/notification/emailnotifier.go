package notification

import (
	"bytes"
	"crypto/tls"
	"fmt"
	htmltemplate "html/template"
	"io"
	"log/slog"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the connection settings for the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

// EmailNotifier delivers notices over SMTP. Both template bodies are
// rendered with the notification data; when text and HTML are both
// present the HTML rides along as an alternative part.
type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
}

// NewEmailNotifier builds the notifier's mail client. Auth is only
// configured when both username and password are set, so local dev
// against Mailpit needs no credentials.
func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30 * time.Second),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	// Self-signed relays are common in the deployments this runs in,
	// so hostname verification stays off under both policies.
	policy := mail.TLSMandatory
	if !config.TLS {
		policy = mail.NoTLS
	}
	opts = append(opts,
		mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
		mail.WithTLSPolicy(policy),
	)

	slog.Info("Creating mail client", "host", config.Host, "port", config.Port, "tls", config.TLS)
	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &EmailNotifier{SMTPConfig: config, client: client}, nil
}

func (e *EmailNotifier) Send(noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	if notification.To == "" {
		return fmt.Errorf("email notification requires 'To' address")
	}

	textBody, err := renderBody("text", noticeTemplate.Text, notification.Data)
	if err != nil {
		return err
	}
	htmlBody, err := renderBody("html", noticeTemplate.Html, notification.Data)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		return fmt.Errorf("invalid from address %q: %w", e.SMTPConfig.From, err)
	}
	if err := msg.To(notification.To); err != nil {
		return fmt.Errorf("invalid to address %q: %w", notification.To, err)
	}

	// CC/BCC ride along in the data map as comma-separated lists
	if cc := notification.Data["cc"]; cc != "" {
		if err := msg.Cc(splitAddresses(cc)...); err != nil {
			return fmt.Errorf("invalid cc addresses: %w", err)
		}
	}
	if bcc := notification.Data["bcc"]; bcc != "" {
		if err := msg.Bcc(splitAddresses(bcc)...); err != nil {
			return fmt.Errorf("invalid bcc addresses: %w", err)
		}
	}

	subject := noticeTemplate.Subject
	if notification.Subject != "" {
		subject = notification.Subject
	}
	msg.Subject(subject)

	switch {
	case textBody != "" && htmlBody != "":
		// Text first so text-only clients get a readable notice
		msg.SetBodyString(mail.TypeTextPlain, textBody)
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	case htmlBody != "":
		msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	default:
		msg.SetBodyString(mail.TypeTextPlain, textBody)
	}

	if err := e.client.DialAndSend(msg); err != nil {
		slog.Error("Failed to send email", "to", notification.To, "err", err)
		return err
	}

	slog.Info("Email sent", "to", notification.To, "noticeType", noticeType)
	return nil
}

// renderBody renders one template source with the notification data.
// HTML sources go through html/template so values are escaped; text
// sources go through text/template so they are not.
func renderBody(kind, source string, data map[string]string) (string, error) {
	if source == "" {
		return "", nil
	}

	var tmpl interface {
		Execute(w io.Writer, data interface{}) error
	}
	var err error
	if kind == "html" {
		tmpl, err = htmltemplate.New(kind).Parse(source)
	} else {
		tmpl, err = texttemplate.New(kind).Parse(source)
	}
	if err != nil {
		return "", fmt.Errorf("failed to parse %s body template: %w", kind, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s body template: %w", kind, err)
	}
	return buf.String(), nil
}

func splitAddresses(list string) []string {
	parts := strings.Split(list, ",")
	addresses := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}
	return addresses
}
