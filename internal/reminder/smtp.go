package reminder

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"
)

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// SMTPConfig holds the SMTP server settings for sending reminders.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string

	// TLS selects implicit TLS; otherwise STARTTLS is required.
	TLS bool
}

const dialTimeout = 30 * time.Second

// SMTPSender sends mail through an authenticated SMTP server.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers msg. from may be a display address such as
// "TaskFeed <notify@example.com>"; only the address is used on the wire.
func (s *SMTPSender) Send(ctx context.Context, from string, to []string, msg []byte) error {
	envelopeFrom := from
	if addr, err := mail.ParseAddress(from); err == nil {
		envelopeFrom = addr.Address
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	client, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	return sendViaClient(client, envelopeFrom, to, msg)
}

// dial connects with implicit TLS or STARTTLS.
func (s *SMTPSender) dial(ctx context.Context, addr string) (*smtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}
	dialer := &net.Dialer{Timeout: dialTimeout}

	if s.cfg.TLS {
		conn, err := (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("TLS dial to %s: %w", addr, err)
		}
		client, err := smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("creating SMTP client: %w", err)
		}
		return client, nil
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial to %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating SMTP client: %w", err)
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		client.Close()
		return nil, fmt.Errorf("SMTP STARTTLS: %w", err)
	}
	return client, nil
}

// sendViaClient sends a message using an already-authenticated SMTP
// client.
func sendViaClient(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT TO %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write(msg); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
