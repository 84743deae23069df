package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptSecret(t *testing.T) {
	blob, err := EncryptSecret("  my-api-secret\n", "hunter2")
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "my-api-secret")

	got, err := DecryptSecret(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "my-api-secret", got)

	_, err = DecryptSecret(blob, "wrong")
	require.Error(t, err)
}

func TestEncryptSecretValidation(t *testing.T) {
	_, err := EncryptSecret("x", "")
	require.Error(t, err)

	_, err = EncryptSecret("   ", "pw")
	require.Error(t, err)
}

func TestDecryptSecretRejectsGarbage(t *testing.T) {
	_, err := DecryptSecret([]byte("{"), "pw")
	require.Error(t, err)

	_, err = DecryptSecret([]byte(`{"version":9}`), "pw")
	require.ErrorContains(t, err, "unsupported version")
}

func TestLoadSecret(t *testing.T) {
	got, err := LoadSecret(SecretConfig{Raw: "plain", EncryptedPath: "/does/not/matter"})
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	got, err = LoadSecret(SecretConfig{})
	require.NoError(t, err)
	assert.Empty(t, got)

	blob, err := EncryptSecret("from-file", "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "secret.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err = LoadSecret(SecretConfig{EncryptedPath: path, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	_, err = LoadSecret(SecretConfig{EncryptedPath: filepath.Join(t.TempDir(), "missing.json"), Password: "pw"})
	require.Error(t, err)
}
