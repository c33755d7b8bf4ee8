package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	require.NoError(t, EnsureDirs(root))
	fi, err := os.Stat(StorePath(root))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	// idempotent
	require.NoError(t, EnsureDirs(root))
}

func TestEnsureDirsRejectsFileAndSymlink(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(StorePath(root), []byte("x"), 0o600))
	assert.Error(t, EnsureDirs(root))

	other := t.TempDir()
	link := t.TempDir()
	require.NoError(t, os.Symlink(other, StorePath(link)))
	assert.Error(t, EnsureDirs(link))

	assert.Error(t, EnsureDirs(""))
}
