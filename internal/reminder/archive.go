package reminder

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Archiver keeps a copy of each sent reminder.
type Archiver interface {
	Archive(ctx context.Context, msg []byte, sentAt time.Time) error
}

// IMAPConfig holds the IMAP account and mailbox sent reminders are
// appended to.
type IMAPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string
}

// IMAPArchiver appends sent reminders to an IMAP mailbox, marked seen.
type IMAPArchiver struct {
	cfg IMAPConfig
}

// NewIMAPArchiver creates an archiver. An empty mailbox means "Sent".
func NewIMAPArchiver(cfg IMAPConfig) *IMAPArchiver {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "Sent"
	}
	return &IMAPArchiver{cfg: cfg}
}

// connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for calling Logout on the returned client.
func (a *IMAPArchiver) connect() (*imapclient.Client, error) {
	addr := net.JoinHostPort(a.cfg.Host, a.cfg.Port)

	var client *imapclient.Client
	var err error

	if a.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(a.cfg.Username, a.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("IMAP authentication failed for %s: %w", a.cfg.Username, err)
	}

	return client, nil
}

// Archive appends msg to the configured mailbox.
func (a *IMAPArchiver) Archive(ctx context.Context, msg []byte, sentAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := a.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	appendCmd := client.Append(a.cfg.Mailbox, int64(len(msg)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagSeen},
		Time:  sentAt,
	})
	if _, err := appendCmd.Write(msg); err != nil {
		_ = appendCmd.Close()
		return fmt.Errorf("writing to %s: %w", a.cfg.Mailbox, err)
	}
	if err := appendCmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", a.cfg.Mailbox, err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("appending to %s: %w", a.cfg.Mailbox, err)
	}
	return nil
}
