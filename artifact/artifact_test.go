package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readText(t *testing.T, file string) string {
	b, err := os.ReadFile(file)
	require.NoError(t, err)
	return string(b)
}

func TestWriterFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir, "server")
	require.NoError(t, w.Begin())
	require.NoError(t, w.WriteKeys("6", `{"x": 10, "y": 6}`))
	assert.Equal(t, "6", readText(t, filepath.Join(dir, "server.priv")))
	assert.Equal(t, `{"x": 10, "y": 6}`, readText(t, filepath.Join(dir, "server.pub")))
	assert.NoFileExists(t, w.Path(EXT_SHARED))

	require.NoError(t, w.WriteSessionKey("abcd"))
	assert.Equal(t, "abcd", readText(t, w.Path(EXT_SHARED)))

	info, err := os.Stat(w.Path(EXT_PRIVATE))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestBeginRemovesStaleSessionKey(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "client")
	require.NoError(t, os.WriteFile(w.Path(EXT_SHARED), []byte("old"), 0600))
	require.NoError(t, w.Begin())
	assert.NoFileExists(t, w.Path(EXT_SHARED))
	// nothing to remove
	require.NoError(t, w.Begin())
}

func TestWriterDefaultDir(t *testing.T) {
	w := NewWriter("", "client")
	assert.Equal(t, "client.pub", w.Path(EXT_PUBLIC))
}
