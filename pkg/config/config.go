package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/paths"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "BRIDGEPM_"

// Output formats accepted by output.format.
var outputFormats = []string{"auto", "term", "text", "json"}

// Config is the fully resolved tool configuration.
type Config struct {
	Paths  PathsConfig  `koanf:"paths" toml:"paths"`
	Bridge BridgeConfig `koanf:"bridge" toml:"bridge"`
	Engine EngineConfig `koanf:"engine" toml:"engine"`
	Output OutputConfig `koanf:"output" toml:"output"`
}

// PathsConfig locates every directory bridgepm reads or writes.
type PathsConfig struct {
	Bridges string `koanf:"bridges" toml:"bridges"`
	Inputs  string `koanf:"inputs" toml:"inputs"`
	Target  string `koanf:"target" toml:"target"`
	Links   string `koanf:"links" toml:"links"`
	Store   string `koanf:"store" toml:"store"`
}

type BridgeConfig struct {
	Timeout time.Duration `koanf:"timeout" toml:"timeout"`
}

type EngineConfig struct {
	Workers int `koanf:"workers" toml:"workers"`
}

type OutputConfig struct {
	Format string `koanf:"format" toml:"format"`
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit config path. When set it must exist.
	ConfigFile string
	// Paths supplies default directories. Resolved from the environment when nil.
	Paths paths.Paths
	// Overrides are flat koanf keys (e.g. "engine.workers") applied last.
	Overrides map[string]interface{}
}

// Load merges all configuration sources and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	p := opts.Paths
	if p == nil {
		var err error
		if p, err = paths.New(); err != nil {
			return nil, err
		}
	}

	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. User config file
	configFile := opts.ConfigFile
	explicit := configFile != ""
	if !explicit {
		configFile = p.ConfigFile()
	}
	configFile = paths.ExpandHome(configFile)
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", configFile)
		}
	} else if explicit {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s", configFile)
	}

	// 3. Environment
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Command line overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := cfg.resolvePaths(p); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(p paths.Paths) error {
	fields := []struct {
		value    *string
		fallback string
	}{
		{&c.Paths.Bridges, p.BridgesDir()},
		{&c.Paths.Inputs, p.InputsDir()},
		{&c.Paths.Target, p.TargetDir()},
		{&c.Paths.Links, p.LinksDir()},
		{&c.Paths.Store, p.StorePath()},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.value) == "" {
			*f.value = f.fallback
		}
		resolved, err := paths.Resolve(*f.value)
		if err != nil {
			return err
		}
		*f.value = resolved
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Engine.Workers < 1 {
		return errors.Newf(errors.ErrConfigValid, "engine.workers must be at least 1, got %d", c.Engine.Workers)
	}
	if c.Bridge.Timeout <= 0 {
		return errors.Newf(errors.ErrConfigValid, "bridge.timeout must be positive, got %s", c.Bridge.Timeout)
	}
	for _, f := range outputFormats {
		if c.Output.Format == f {
			return nil
		}
	}
	return errors.Newf(errors.ErrConfigValid, "output.format must be one of %s, got %q",
		strings.Join(outputFormats, ", "), c.Output.Format)
}

// EnsureLayout creates the directories bridgepm writes to. Failure here is
// fatal for every mutating command.
func (c *Config) EnsureLayout(fsys types.FS) error {
	for _, dir := range []string{c.Paths.Target, c.Paths.Links, filepath.Dir(c.Paths.Store)} {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", dir)
		}
	}
	return nil
}
