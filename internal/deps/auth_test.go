package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestAuth_SetToken(t *testing.T) {
	a := NewAuth(filepath.Join(t.TempDir(), "host", "auth.json"))

	require.NoError(t, a.SetToken("https://plugins.example.com/api", "secret"))
	tok, ok := a.Token("plugins.example.com")
	require.True(t, ok)
	assert.Equal(t, "secret", tok)

	data, err := os.ReadFile(a.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"bearer\"")
}

func TestAuth_ExistingEntryWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bearer":{"plugins.example.com":"old"},"github-oauth":{"github.com":"gh"}}`), 0o600))
	a := NewAuth(path)

	require.NoError(t, a.SetToken("plugins.example.com", "new"))
	require.NoError(t, a.SetToken("mirror.example.org", "m"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", gjson.GetBytes(data, `bearer.plugins\.example\.com`).String())
	assert.Equal(t, "m", gjson.GetBytes(data, `bearer.mirror\.example\.org`).String())
	assert.Equal(t, "gh", gjson.GetBytes(data, `github-oauth.github\.com`).String())
}

func TestAuth_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o600))
	assert.Error(t, NewAuth(path).SetToken("plugins.example.com", "x"))
}
