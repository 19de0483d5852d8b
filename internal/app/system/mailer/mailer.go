// Package mailer sends templated email over SMTP. It works unauthenticated
// against dev servers like Mailpit and with PlainAuth + STARTTLS against
// real providers.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Email is one outbound message. TextBody is the fallback for clients that
// do not render HTML.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender is the interface handlers and workers consume, so tests can swap
// in a recorder.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Mailer is the SMTP-backed Sender.
type Mailer struct {
	host     string
	port     int
	user     string
	pass     string
	from     string
	fromName string
	log      *zap.Logger

	// InsecureSkipVerify skips TLS certificate verification; only for
	// local dev servers with self-signed certs.
	InsecureSkipVerify bool
}

// New builds a Mailer. An empty user disables AUTH.
func New(host string, port int, user, pass, from, fromName string, logger *zap.Logger) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		user:     user,
		pass:     pass,
		from:     from,
		fromName: fromName,
		log:      logger,
	}
}

// Send delivers one message. The context deadline bounds the whole SMTP
// conversation.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	msg := m.buildMessage(e)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() {
		if err := c.Quit(); err != nil {
			m.log.Debug("smtp quit failed", zap.Error(err))
		}
	}()

	if err := c.Hello("localhost"); err != nil {
		return err
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := &tls.Config{
			ServerName:         m.host,
			InsecureSkipVerify: m.InsecureSkipVerify,
		}
		if err := c.StartTLS(cfg); err != nil {
			return err
		}
		if err := c.Hello("localhost"); err != nil {
			return err
		}
	}

	if auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(e.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	return w.Close()
}

func (m *Mailer) buildMessage(e Email) string {
	from := m.from
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.from)
	}

	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + e.To + "\r\n")
	sb.WriteString("Subject: " + encodeRFC2047(e.Subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	if e.HTMLBody != "" {
		sb.WriteString(e.HTMLBody)
	} else {
		sb.WriteString(e.TextBody)
	}
	return sb.String()
}

// htmlPolicy strips scripts and event handlers from admin-supplied mail
// bodies while keeping basic formatting.
var htmlPolicy = bluemonday.UGCPolicy()

// SanitizeHTML cleans untrusted HTML before it is embedded in an email.
func SanitizeHTML(body string) string {
	return htmlPolicy.Sanitize(body)
}

// encodeRFC2047 Q-encodes a Subject so non-ASCII (Turkish names, for one)
// survives transport.
func encodeRFC2047(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	return fmt.Sprintf("=?UTF-8?Q?%s?=", qEncode(s))
}

func qEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('_')
		default:
			b.WriteString(fmt.Sprintf("=%02X", c))
		}
	}
	return b.String()
}
