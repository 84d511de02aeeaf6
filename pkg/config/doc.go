// Package config loads bridgepm settings.
//
// Sources are layered in this order, later ones winning:
//
//   - embedded defaults (embedded/defaults.toml)
//   - the user config file ($XDG_CONFIG_HOME/bridgepm/config.toml or --config)
//   - BRIDGEPM_<SECTION>_<KEY> environment variables
//   - command line overrides
//
// Empty path settings fall back to the XDG locations from pkg/paths.
package config
