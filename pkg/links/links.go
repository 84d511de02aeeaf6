package links

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/rs/zerolog"
)

const tmpSuffix = ".bridgepm-tmp"

var tmpSeq uint64

// Manager owns the symlinks in the load path directory.
type Manager struct {
	fs     types.FS
	dir    string
	logger zerolog.Logger
}

// New returns a manager for dir, creating the directory if needed.
func New(fsys types.FS, dir string) (*Manager, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "failed to create load path %s", dir)
	}
	info, err := fsys.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat load path %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrDirCreate, "load path %s is not a directory", dir)
	}
	return &Manager{fs: fsys, dir: dir, logger: logging.GetLogger("links")}, nil
}

// Dir is the load path directory.
func (m *Manager) Dir() string { return m.dir }

// Path is the symlink location for execName.
func (m *Manager) Path(execName string) string {
	return filepath.Join(m.dir, execName)
}

// Link points dir/execName at target. The link is created under a temporary
// name and renamed into place, so an existing link is replaced atomically and
// observers never see a missing entry. Regular files and directories at the
// link location are never overwritten.
func (m *Manager) Link(execName, target string) error {
	if err := types.ValidateExecName(execName); err != nil {
		return errors.Wrap(err, errors.ErrLinkCreate, "invalid link name")
	}
	final := m.Path(execName)

	if info, err := m.fs.Lstat(final); err == nil && info.Mode()&os.ModeSymlink == 0 {
		return errors.Newf(errors.ErrLinkConflict, "%s exists and is not a symlink", final).
			WithDetail("path", final)
	}

	tmp := filepath.Join(m.dir, fmt.Sprintf(".%s.%d.%d%s",
		execName, os.Getpid(), atomic.AddUint64(&tmpSeq, 1), tmpSuffix))
	if err := m.fs.Symlink(target, tmp); err != nil {
		return errors.Wrapf(err, errors.ErrLinkCreate, "failed to create link for %s", execName)
	}
	if err := m.fs.Rename(tmp, final); err != nil {
		_ = m.fs.Remove(tmp)
		return errors.Wrapf(err, errors.ErrLinkCreate, "failed to move link for %s into place", execName)
	}

	m.logger.Debug().Str("exec_name", execName).Str("target", target).Msg("Link created")
	return nil
}

// Unlink removes dir/execName. A missing link is not an error.
func (m *Manager) Unlink(execName string) error {
	if err := types.ValidateExecName(execName); err != nil {
		return errors.Wrap(err, errors.ErrLinkRemove, "invalid link name")
	}
	final := m.Path(execName)

	info, err := m.fs.Lstat(final)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrLinkRemove, "failed to stat %s", final)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return errors.Newf(errors.ErrLinkConflict, "%s is not a symlink, leaving it alone", final).
			WithDetail("path", final)
	}
	if err := m.fs.Remove(final); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrLinkRemove, "failed to remove %s", final)
	}

	m.logger.Debug().Str("exec_name", execName).Msg("Link removed")
	return nil
}

// State describes a package link as found on disk.
type State string

const (
	StateOK       State = "ok"
	StateMissing  State = "missing"
	StateWrong    State = "wrong-target"
	StateDangling State = "dangling"
)

// Check compares the link of pkg with its expected target.
func (m *Manager) Check(pkg types.InstalledPackage) State {
	current, err := m.fs.Readlink(m.Path(pkg.ExecName))
	if err != nil {
		return StateMissing
	}
	if current != pkg.LinkTarget() {
		return StateWrong
	}
	if _, err := m.fs.Stat(current); err != nil {
		return StateDangling
	}
	return StateOK
}

// SyncResult lists what Sync changed.
type SyncResult struct {
	Linked []string
	Pruned []string
	Failed map[string]error
}

// Sync makes the load path match pkgs: every non-pending package gets its
// link recreated and symlinks that belong to no package are pruned. Regular
// files are left untouched.
func (m *Manager) Sync(pkgs []types.InstalledPackage) (SyncResult, error) {
	result := SyncResult{Failed: map[string]error{}}
	wanted := make(map[string]bool, len(pkgs))

	for _, pkg := range pkgs {
		if pkg.PendingRemoval {
			continue
		}
		wanted[pkg.ExecName] = true
		if err := m.Link(pkg.ExecName, pkg.LinkTarget()); err != nil {
			result.Failed[pkg.ExecName] = err
			continue
		}
		result.Linked = append(result.Linked, pkg.ExecName)
	}

	entries, err := m.fs.ReadDir(m.dir)
	if err != nil {
		return result, errors.Wrapf(err, errors.ErrFileAccess, "failed to read load path %s", m.dir)
	}
	for _, entry := range entries {
		name := entry.Name()
		if wanted[name] || entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasSuffix(name, tmpSuffix) {
			continue
		}
		if err := m.fs.Remove(filepath.Join(m.dir, name)); err != nil {
			result.Failed[name] = errors.Wrapf(err, errors.ErrLinkRemove, "failed to prune %s", name)
			continue
		}
		result.Pruned = append(result.Pruned, name)
	}
	sort.Strings(result.Pruned)

	if len(result.Failed) > 0 {
		return result, errors.Newf(errors.ErrLinkCreate, "%d links could not be synced", len(result.Failed))
	}
	return result, nil
}
