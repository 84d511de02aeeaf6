package bridgepm

import (
	"errors"
	"io"
	"time"

	"github.com/arthur-debert/bridgepm/pkg/bridge"
	"github.com/arthur-debert/bridgepm/pkg/config"
	"github.com/arthur-debert/bridgepm/pkg/filesystem"
	"github.com/arthur-debert/bridgepm/pkg/links"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/paths"
	"github.com/arthur-debert/bridgepm/pkg/reconcile"
	"github.com/arthur-debert/bridgepm/pkg/store"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/arthur-debert/bridgepm/pkg/ui"
	"github.com/spf13/cobra"
)

// ErrPackagesFailed is returned by mutating commands after the report has
// been printed and at least one package failed.
var ErrPackagesFailed = errors.New(MsgErrPackagesFailed)

// globalOptions holds the persistent flags.
type globalOptions struct {
	verbosity  int
	configFile string
	workers    int
	timeout    time.Duration
	format     string
}

// overrides returns the config keys set explicitly on the command line.
func (o *globalOptions) overrides(cmd *cobra.Command) map[string]interface{} {
	out := map[string]interface{}{}
	flags := cmd.Flags()
	if flags.Changed("workers") {
		out["engine.workers"] = o.workers
	}
	if flags.Changed("timeout") {
		out["bridge.timeout"] = o.timeout.String()
	}
	if flags.Changed("format") {
		out["output.format"] = o.format
	}
	return out
}

// app is everything a command needs, built from the configuration.
type app struct {
	cfg      *config.Config
	paths    paths.Paths
	fs       types.FS
	out      io.Writer
	renderer ui.Renderer

	store    *store.Store
	links    *links.Manager
	registry *bridge.Registry
	engine   *reconcile.Engine
}

// loadApp reads the configuration and prepares the renderer. Nothing is
// created on disk.
func loadApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	p, err := paths.New()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: opts.configFile,
		Paths:      p,
		Overrides:  opts.overrides(cmd),
	})
	if err != nil {
		return nil, err
	}

	format, err := ui.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	renderer, err := ui.NewRenderer(format, out)
	if err != nil {
		return nil, err
	}

	fsys := filesystem.NewOS()
	return &app{
		cfg:      cfg,
		paths:    p,
		fs:       fsys,
		out:      out,
		renderer: renderer,
		registry: bridge.NewRegistry(fsys, cfg.Paths.Bridges),
	}, nil
}

// openApp additionally creates the directory layout and opens the store,
// links and engine. Any failure here aborts the command before a package is
// touched.
func openApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	a, err := loadApp(cmd, opts)
	if err != nil {
		return nil, err
	}
	if err := a.cfg.EnsureLayout(a.fs); err != nil {
		return nil, err
	}

	st, err := store.Open(cmd.Context(), a.cfg.Paths.Store)
	if err != nil {
		return nil, err
	}
	lm, err := links.New(a.fs, a.cfg.Paths.Links)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a.store = st
	a.links = lm
	a.engine = reconcile.New(reconcile.Options{
		Store:   st,
		Bridges: a.registry,
		Invoker: bridge.NewInvoker(bridge.InvokerOptions{
			FS:        a.fs,
			Timeout:   a.cfg.Bridge.Timeout,
			TargetDir: a.cfg.Paths.Target,
			LogDir:    a.paths.BridgeLogDir(),
		}),
		Links:   lm,
		FS:      a.fs,
		Workers: a.cfg.Engine.Workers,
		Logger:  logging.GetLogger("reconcile"),
	})

	logger := logging.GetLogger("cli")
	logger.Debug().
		Str("bridges", a.cfg.Paths.Bridges).
		Str("inputs", a.cfg.Paths.Inputs).
		Str("target", a.cfg.Paths.Target).
		Str("links", a.cfg.Paths.Links).
		Str("store", a.cfg.Paths.Store).
		Msg("Environment ready")
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger := logging.GetLogger("cli")
			logger.Warn().Err(err).Msg("Failed to close package store")
		}
	}
}
