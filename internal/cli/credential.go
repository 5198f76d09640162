package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/taskfeed/internal/credential"
	"github.com/nhle/taskfeed/internal/model"
)

// mailProtocols are the accounts a password can be stored for.
var mailProtocols = []string{"smtp", "imap"}

// CredentialOptions holds flags for the credential commands.
type CredentialOptions struct {
	*RootOptions
	PasswordStdin bool

	// prompt asks for a password interactively; replaced in tests.
	prompt func(title string) (string, error)
}

// NewCredentialCommand creates the credential command group.
func NewCredentialCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CredentialOptions{RootOptions: rootOpts, prompt: promptPassword}

	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage mail passwords in the system keyring",
		Long: `Store or remove the SMTP and IMAP passwords used by "taskfeed remind".

The keyring item is named after the account in the config file, for example
smtp:alice@mail.example.com. TASKFEED_SMTP_PASSWORD and
TASKFEED_IMAP_PASSWORD take precedence over the keyring.`,
	}

	set := &cobra.Command{
		Use:       "set smtp|imap",
		Short:     "Store a mail password",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: mailProtocols,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialSet(opts, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	set.Flags().BoolVar(&opts.PasswordStdin, "password-stdin", false, "read the password from stdin")

	del := &cobra.Command{
		Use:       "delete smtp|imap",
		Short:     "Remove a stored mail password",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: mailProtocols,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentialDelete(opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}

func runCredentialSet(opts *CredentialOptions, protocol string, in io.Reader, out io.Writer) error {
	key, err := accountKey(opts.RootOptions, protocol)
	if err != nil {
		return err
	}

	var password string
	if opts.PasswordStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	} else {
		password, err = opts.prompt(fmt.Sprintf("Password for %s", key))
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
	}
	if password == "" {
		return NewExitError(ExitCommandError, "password must not be empty")
	}

	if err := credential.Set(key, password); err != nil {
		return WrapExitError(ExitCommandError, "storing password", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out}
	return formatter.Success(map[string]string{"stored": key}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "stored %s\n", key)
		return err
	})
}

func runCredentialDelete(opts *CredentialOptions, protocol string, out io.Writer) error {
	key, err := accountKey(opts.RootOptions, protocol)
	if err != nil {
		return err
	}

	if err := credential.Delete(key); err != nil {
		return WrapExitError(ExitCommandError, "removing password", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out}
	return formatter.Success(map[string]string{"deleted": key}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "deleted %s\n", key)
		return err
	})
}

// accountKey returns the keyring key for the configured account.
func accountKey(opts *RootOptions, protocol string) (string, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return "", err
	}

	var server model.MailServerConfig
	switch protocol {
	case "smtp":
		server = cfg.Reminder.SMTP
	case "imap":
		server = cfg.Reminder.IMAP.MailServerConfig
	default:
		return "", NewExitError(ExitCommandError, fmt.Sprintf("unknown protocol %q", protocol))
	}
	if !server.Enabled() || server.Username == "" {
		return "", NewExitError(ExitCommandError,
			fmt.Sprintf("reminder.%s.host and reminder.%s.username must be configured", protocol, protocol))
	}
	return credential.MailPasswordKey(protocol, server.Username, server.Host), nil
}

func promptPassword(title string) (string, error) {
	var password string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&password).
		Run()
	return password, err
}
