// Package mailer sends plain-text email through an SMTP relay that
// accepts unauthenticated connections (a LAN relay or localhost MTA).
// The core only consumes the error outcome.
package mailer

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Config defines SMTP relay settings
type Config struct {
	Host       string
	Port       int
	From       string
	SenderName string
	Timeout    time.Duration
}

// Mailer sends mail through a fixed relay
type Mailer struct {
	addr       string
	from       string
	senderName string
	timeout    time.Duration
}

// New instantiates a Mailer
func New(cfg Config) (*Mailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("mailer: host and from address are required")
	}

	port := cfg.Port
	if port <= 0 {
		port = 25
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Mailer{
		addr:       net.JoinHostPort(cfg.Host, fmt.Sprint(port)),
		from:       cfg.From,
		senderName: cfg.SenderName,
		timeout:    timeout,
	}, nil
}

// Send delivers one plain-text message. Any failure is returned to the
// caller; nothing is retried here.
func (m *Mailer) Send(to, subject, body string) error {
	conn, err := net.DialTimeout("tcp", m.addr, m.timeout)
	if err != nil {
		return fmt.Errorf("mailer: dial %s: %w", m.addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(m.timeout))

	host, _, _ := net.SplitHostPort(m.addr)
	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mailer: handshake: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("mailer: MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("mailer: RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mailer: DATA: %w", err)
	}
	if _, err := w.Write([]byte(m.message(to, subject, body))); err != nil {
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: close body: %w", err)
	}

	return client.Quit()
}

func (m *Mailer) message(to, subject, body string) string {
	from := m.from
	if m.senderName != "" {
		from = fmt.Sprintf("%s <%s>", m.senderName, m.from)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}
