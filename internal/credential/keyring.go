package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "taskfeed"

// ErrNotFound is returned when a credential is in neither the environment
// nor the keyring.
var ErrNotFound = errors.New("credential not found")

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/taskfeed/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("taskfeed-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// open is replaced in tests.
var open = openKeyring

// MailPasswordKey names the keyring item holding the password for a mail
// server account, e.g. "smtp:alice@mail.example.com".
func MailPasswordKey(protocol, username, host string) string {
	return fmt.Sprintf("%s:%s@%s", protocol, username, host)
}

// MailPasswordEnv names the environment variable that overrides the
// keyring for a protocol, e.g. TASKFEED_SMTP_PASSWORD.
func MailPasswordEnv(protocol string) string {
	return "TASKFEED_" + strings.ToUpper(protocol) + "_PASSWORD"
}

// Resolve returns the value of envVar when set, otherwise the keyring item
// stored under key.
func Resolve(envVar, key string) (string, error) {
	if envVar != "" {
		if v, ok := os.LookupEnv(envVar); ok && v != "" {
			return v, nil
		}
	}

	v, err := Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s (set %s or store it in the keyring)", ErrNotFound, key, envVar)
	}
	return v, err
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "taskfeed " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
