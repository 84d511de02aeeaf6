package bridge

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/rs/zerolog"
)

// RunFile is the executable every bridge directory must contain.
const RunFile = "run"

// Registry resolves bridge names to executables under one bridges directory.
type Registry struct {
	fs     types.FS
	dir    string
	logger zerolog.Logger
}

// NewRegistry returns a registry rooted at dir.
func NewRegistry(fsys types.FS, dir string) *Registry {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Registry{fs: fsys, dir: dir, logger: logging.GetLogger("bridge.registry")}
}

// Dir is the bridges directory.
func (r *Registry) Dir() string { return r.dir }

// Resolve returns the bridge called name. The bridge directory must contain
// an executable file named run.
func (r *Registry) Resolve(name string) (types.Bridge, error) {
	if err := types.ValidateBridgeName(name); err != nil {
		return types.Bridge{}, errors.Wrap(err, errors.ErrBridgeNotFound, "invalid bridge name")
	}

	if info, err := r.fs.Stat(r.dir); err != nil || !info.IsDir() {
		return types.Bridge{}, errors.Newf(errors.ErrBridgeSetNotFound, "bridges directory %s does not exist", r.dir).
			WithDetail("bridge", name)
	}

	dir := filepath.Join(r.dir, name)
	info, err := r.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		return types.Bridge{}, errors.Newf(errors.ErrBridgeNotFound, "bridge %s not found in %s", name, r.dir).
			WithDetail("bridge", name)
	}

	run := filepath.Join(dir, RunFile)
	info, err = r.fs.Stat(run)
	if os.IsNotExist(err) {
		return types.Bridge{}, errors.Newf(errors.ErrBridgeNotFound, "bridge %s has no %s executable", name, RunFile).
			WithDetail("bridge", name)
	}
	if err != nil {
		return types.Bridge{}, errors.Wrapf(err, errors.ErrBridgeNotExecutable, "bridge %s is not accessible", name).
			WithDetail("bridge", name)
	}
	if info.IsDir() || info.Mode().Perm()&0111 == 0 {
		return types.Bridge{}, errors.Newf(errors.ErrBridgeNotExecutable, "%s is not executable", run).
			WithDetail("bridge", name)
	}

	r.logger.Trace().Str("bridge", name).Str("run", run).Msg("Bridge resolved")
	return types.Bridge{Name: name, Dir: dir, Executable: run}, nil
}

// Entry is one directory found in the bridges directory.
type Entry struct {
	Name   string
	Bridge types.Bridge
	// Err is set when the directory is not a usable bridge.
	Err error
}

// List resolves every directory in the bridges directory, sorted by name.
func (r *Registry) List() ([]Entry, error) {
	entries, err := r.fs.ReadDir(r.dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrBridgeSetNotFound, "failed to read bridges directory %s", r.dir)
	}

	var out []Entry
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		b, err := r.Resolve(e.Name())
		out = append(out, Entry{Name: e.Name(), Bridge: b, Err: err})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
