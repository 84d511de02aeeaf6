// pkg/links/links_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: Temporary filesystem
// PURPOSE: Test atomic link creation, replacement, removal and load path sync

package links_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/filesystem"
	"github.com/arthur-debert/bridgepm/pkg/links"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*links.Manager, string) {
	t.Helper()
	root := t.TempDir()
	m, err := links.New(filesystem.NewOS(), filepath.Join(root, "bin"))
	require.NoError(t, err)
	return m, root
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func TestNewCreatesDirectory(t *testing.T) {
	m, root := newManager(t)
	info, err := os.Stat(filepath.Join(root, "bin"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(root, "bin"), m.Dir())
}

func TestNewRejectsFile(t *testing.T) {
	root := t.TempDir()
	path := touch(t, filepath.Join(root, "bin"))

	_, err := links.New(filesystem.NewOS(), path)
	assert.Error(t, err)
}

func TestLinkCreatesAndReplaces(t *testing.T) {
	m, root := newManager(t)
	v1 := touch(t, filepath.Join(root, "pkgs", "bat-1"))
	v2 := touch(t, filepath.Join(root, "pkgs", "bat-2"))

	require.NoError(t, m.Link("bat", v1))
	got, err := os.Readlink(m.Path("bat"))
	require.NoError(t, err)
	assert.Equal(t, v1, got)

	require.NoError(t, m.Link("bat", v2))
	got, err = os.Readlink(m.Path("bat"))
	require.NoError(t, err)
	assert.Equal(t, v2, got)

	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary links are left behind")
}

func TestLinkRefusesToClobberFiles(t *testing.T) {
	m, root := newManager(t)
	touch(t, m.Path("bat"))

	err := m.Link("bat", filepath.Join(root, "pkgs", "bat"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLinkConflict))
}

func TestLinkRejectsBadNames(t *testing.T) {
	m, _ := newManager(t)
	assert.Error(t, m.Link("../escape", "/bin/true"))
	assert.Error(t, m.Link("", "/bin/true"))
}

func TestUnlink(t *testing.T) {
	m, root := newManager(t)
	target := touch(t, filepath.Join(root, "pkgs", "rg"))

	require.NoError(t, m.Link("rg", target))
	require.NoError(t, m.Unlink("rg"))
	_, err := os.Lstat(m.Path("rg"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, m.Unlink("rg"), "missing link is not an error")

	touch(t, m.Path("manual"))
	err = m.Unlink("manual")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLinkConflict))
}

func TestCheck(t *testing.T) {
	m, root := newManager(t)
	target := touch(t, filepath.Join(root, "pkgs", "jq"))
	pkg := types.InstalledPackage{ExecName: "jq", Type: types.SingleExecutable, Path: target}

	assert.Equal(t, links.StateMissing, m.Check(pkg))

	require.NoError(t, m.Link("jq", target))
	assert.Equal(t, links.StateOK, m.Check(pkg))

	require.NoError(t, m.Link("jq", "/elsewhere"))
	assert.Equal(t, links.StateWrong, m.Check(pkg))

	require.NoError(t, m.Link("jq", target))
	require.NoError(t, os.Remove(target))
	assert.Equal(t, links.StateDangling, m.Check(pkg))
}

func TestSync(t *testing.T) {
	m, root := newManager(t)
	bat := touch(t, filepath.Join(root, "pkgs", "bat"))
	nvimDir := filepath.Join(root, "pkgs", "nvim")
	touch(t, filepath.Join(nvimDir, "bin", "nvim"))

	require.NoError(t, m.Link("stale", bat))
	require.NoError(t, os.Symlink(bat, filepath.Join(m.Dir(), ".bat.1.1.bridgepm-tmp")))
	touch(t, m.Path("user-script"))

	pkgs := []types.InstalledPackage{
		{ExecName: "bat", Type: types.SingleExecutable, Path: bat},
		{ExecName: "nvim", Type: types.Directory, Path: nvimDir, EntryPoint: "bin/nvim"},
		{ExecName: "gone", Type: types.SingleExecutable, Path: bat, PendingRemoval: true},
	}

	result, err := m.Sync(pkgs)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bat", "nvim"}, result.Linked)
	assert.Equal(t, []string{".bat.1.1.bridgepm-tmp", "stale"}, result.Pruned)

	got, err := os.Readlink(m.Path("nvim"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(nvimDir, "bin", "nvim"), got)

	_, err = os.Lstat(m.Path("gone"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(m.Path("user-script"))
	assert.NoError(t, err, "regular files are kept")
}
