package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useArrayKeyring(t *testing.T) {
	t.Helper()

	ring := keyring.NewArrayKeyring(nil)
	prev := open
	open = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { open = prev })
}

func TestSetGetDelete(t *testing.T) {
	useArrayKeyring(t)
	key := MailPasswordKey("smtp", "alice", "mail.example.com")

	require.NoError(t, Set(key, "s3cret"))

	got, err := Get(key)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	require.NoError(t, Delete(key))
	_, err = Get(key)
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestResolve_PrefersEnvironment(t *testing.T) {
	useArrayKeyring(t)
	require.NoError(t, Set("smtp:alice@host", "from-keyring"))
	t.Setenv(MailPasswordEnv("smtp"), "from-env")

	got, err := Resolve(MailPasswordEnv("smtp"), "smtp:alice@host")

	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}

func TestResolve_FallsBackToKeyring(t *testing.T) {
	useArrayKeyring(t)
	require.NoError(t, Set("imap:alice@host", "from-keyring"))
	t.Setenv(MailPasswordEnv("imap"), "")

	got, err := Resolve(MailPasswordEnv("imap"), "imap:alice@host")

	require.NoError(t, err)
	assert.Equal(t, "from-keyring", got)
}

func TestResolve_Missing(t *testing.T) {
	useArrayKeyring(t)

	_, err := Resolve("TASKFEED_TEST_UNSET_PASSWORD", "smtp:nobody@host")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMailPasswordNames(t *testing.T) {
	assert.Equal(t, "smtp:alice@mail.example.com", MailPasswordKey("smtp", "alice", "mail.example.com"))
	assert.Equal(t, "TASKFEED_IMAP_PASSWORD", MailPasswordEnv("imap"))
}
