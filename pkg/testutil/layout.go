package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Layout is an isolated set of bridgepm directories under t.TempDir.
type Layout struct {
	Root    string
	Bridges string
	Inputs  string
	Target  string
	Links   string
	Store   string
	Logs    string
}

// NewLayout creates the directories of a fresh layout. The store file is not
// created.
func NewLayout(t *testing.T) *Layout {
	t.Helper()
	root := t.TempDir()
	l := &Layout{
		Root:    root,
		Bridges: filepath.Join(root, "bridges"),
		Inputs:  filepath.Join(root, "packages"),
		Target:  filepath.Join(root, "pkgs"),
		Links:   filepath.Join(root, "bin"),
		Store:   filepath.Join(root, "state", "packages.db"),
		Logs:    filepath.Join(root, "logs"),
	}
	for _, dir := range []string{l.Bridges, l.Inputs, l.Target, l.Links} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	return l
}

// WriteInput writes an input file below the inputs directory.
func (l *Layout) WriteInput(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(l.Inputs, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// AssertSymlink checks that link exists and points at target.
func AssertSymlink(t *testing.T, link, target string) {
	t.Helper()
	got, err := os.Readlink(link)
	if assert.NoError(t, err, "expected symlink at %s", link) {
		assert.Equal(t, target, got)
	}
}

// AssertNoEntry checks that nothing exists at path.
func AssertNoEntry(t *testing.T, path string) {
	t.Helper()
	_, err := os.Lstat(path)
	assert.True(t, os.IsNotExist(err), "expected %s to be absent", path)
}
