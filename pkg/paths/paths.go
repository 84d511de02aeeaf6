// Package paths resolves the directories bridgepm uses by default.
// It follows the XDG Base Directory layout and honours BRIDGEPM_* overrides.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/logging"
)

// Environment variable names
const (
	// EnvDataDir overrides the XDG data directory for bridgepm
	EnvDataDir = "BRIDGEPM_DATA_DIR"

	// EnvConfigDir overrides the XDG config directory for bridgepm
	EnvConfigDir = "BRIDGEPM_CONFIG_DIR"

	// EnvCacheDir overrides the XDG cache directory for bridgepm
	EnvCacheDir = "BRIDGEPM_CACHE_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Fixed names inside the bridgepm directories.
const (
	AppDirName     = "bridgepm"
	ConfigFileName = "config.toml"
	BridgesDirName = "bridges"
	InputsDirName  = "packages"
	TargetDirName  = "pkgs"
	LinksDirName   = "bin"
	StoreFileName  = "packages.db"
)

// Paths exposes the resolved base directories and the default locations
// derived from them.
type Paths interface {
	DataDir() string
	ConfigDir() string
	CacheDir() string
	StateDir() string
	ConfigFile() string
	BridgesDir() string
	InputsDir() string
	TargetDir() string
	LinksDir() string
	StorePath() string
	BridgeLogDir() string
}

type paths struct {
	data   string
	config string
	cache  string
	state  string
}

// New resolves the base directories from the environment.
func New() (Paths, error) {
	xdg.Reload()

	p := &paths{
		data:   fromEnv(EnvDataDir, filepath.Join(xdg.DataHome, AppDirName)),
		config: fromEnv(EnvConfigDir, filepath.Join(xdg.ConfigHome, AppDirName)),
		cache:  fromEnv(EnvCacheDir, filepath.Join(xdg.CacheHome, AppDirName)),
		state:  ExpandHome(logging.StateDir()),
	}

	for _, dir := range []*string{&p.data, &p.config, &p.cache, &p.state} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to resolve %s", *dir)
		}
		*dir = abs
	}
	return p, nil
}

func fromEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return ExpandHome(v)
	}
	return fallback
}

func (p *paths) DataDir() string      { return p.data }
func (p *paths) ConfigDir() string    { return p.config }
func (p *paths) CacheDir() string     { return p.cache }
func (p *paths) StateDir() string     { return p.state }
func (p *paths) ConfigFile() string   { return filepath.Join(p.config, ConfigFileName) }
func (p *paths) BridgesDir() string   { return filepath.Join(p.config, BridgesDirName) }
func (p *paths) InputsDir() string    { return filepath.Join(p.config, InputsDirName) }
func (p *paths) TargetDir() string    { return filepath.Join(p.data, TargetDirName) }
func (p *paths) LinksDir() string     { return filepath.Join(p.data, LinksDirName) }
func (p *paths) StorePath() string    { return filepath.Join(p.data, StoreFileName) }
func (p *paths) BridgeLogDir() string { return filepath.Join(p.state, "logs") }

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	if len(path) > 1 && path[1] != '/' && path[1] != filepath.Separator {
		// ~user forms are left alone
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv(EnvHome)
		if home == "" {
			return path
		}
	}
	return filepath.Join(home, strings.TrimLeft(path[1:], `/\`))
}

// Resolve expands ~ and makes path absolute. Empty stays empty.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to resolve %s", path)
	}
	return abs, nil
}
