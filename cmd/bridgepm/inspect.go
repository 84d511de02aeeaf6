package bridgepm

import (
	"fmt"
	"os"
	"strings"

	"github.com/arthur-debert/bridgepm/pkg/config"
	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/store"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/arthur-debert/bridgepm/pkg/ui"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newInfoCmd(opts *globalOptions) *cobra.Command {
	var bridgeName string
	var long bool

	cmd := &cobra.Command{
		Use:               "info [exec_name...]",
		Aliases:           []string{"list", "ls"},
		Short:             MsgInfoShort,
		Long:              MsgInfoLong,
		GroupID:           "inspect",
		ValidArgsFunction: completeInstalled(opts),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var pkgs []types.InstalledPackage
			if bridgeName != "" {
				pkgs, err = a.store.ListByBridge(cmd.Context(), bridgeName)
			} else {
				pkgs, err = a.store.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			pkgs, err = selectPackages(pkgs, args)
			if err != nil {
				return err
			}

			views := make([]ui.PackageView, 0, len(pkgs))
			for _, p := range pkgs {
				views = append(views, ui.PackageView{InstalledPackage: p, Link: a.links.Check(p)})
			}
			return a.renderer.RenderPackages(views, long)
		},
	}
	cmd.Flags().StringVarP(&bridgeName, "bridge", "b", "", MsgFlagBridge)
	cmd.Flags().BoolVarP(&long, "long", "l", false, MsgFlagLong)
	return cmd
}

// selectPackages keeps the packages named in names, in the order given.
// No names selects everything.
func selectPackages(pkgs []types.InstalledPackage, names []string) ([]types.InstalledPackage, error) {
	if len(names) == 0 {
		return pkgs, nil
	}
	byName := make(map[string]types.InstalledPackage, len(pkgs))
	for _, p := range pkgs {
		byName[p.ExecName] = p
	}

	var out []types.InstalledPackage
	var missing []string
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = append(out, p)
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrNotFound, "not installed: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func newLinkCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "link",
		Short:   MsgLinkShort,
		Long:    MsgLinkLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("cli.link")

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			pkgs, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			result, err := a.links.Sync(pkgs)
			if err != nil {
				return err
			}
			for name, linkErr := range result.Failed {
				logger.Error().Err(linkErr).Str("exec_name", name).Msg("Failed to link package")
			}
			if err := a.renderer.RenderMessage(fmt.Sprintf(MsgLinkedFormat, len(result.Linked), len(result.Pruned))); err != nil {
				return err
			}
			if len(result.Failed) > 0 {
				return fmt.Errorf(MsgErrLinkFailed, len(result.Failed))
			}
			return nil
		},
	}
}

func newBridgesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "bridges",
		Short:   MsgBridgesShort,
		GroupID: "inspect",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			entries, err := a.registry.List()
			if err != nil {
				return err
			}
			return a.renderer.RenderBridges(entries)
		},
	}
}

// configView is the printable form of config.Config.
type configView struct {
	Paths  config.PathsConfig `toml:"paths"`
	Bridge struct {
		Timeout string `toml:"timeout"`
	} `toml:"bridge"`
	Engine config.EngineConfig `toml:"engine"`
	Output config.OutputConfig `toml:"output"`
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		GroupID: "inspect",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if defaults {
				_, err := fmt.Fprintln(out, config.DefaultContent())
				return err
			}

			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			view := configView{Paths: a.cfg.Paths, Engine: a.cfg.Engine, Output: a.cfg.Output}
			view.Bridge.Timeout = a.cfg.Bridge.Timeout.String()

			data, err := toml.Marshal(view)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, MsgFlagDefaults)
	return cmd
}

// completeInstalled completes exec names recorded in the store. It never
// creates the store.
func completeInstalled(opts *globalOptions) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		a, err := loadApp(cmd, opts)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		if _, err := os.Stat(a.cfg.Paths.Store); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		st, err := store.Open(cmd.Context(), a.cfg.Paths.Store)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer func() { _ = st.Close() }()

		pkgs, err := st.List(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		taken := make(map[string]bool, len(args))
		for _, arg := range args {
			taken[arg] = true
		}
		var names []string
		for _, p := range pkgs {
			if !taken[p.ExecName] && strings.HasPrefix(p.ExecName, toComplete) {
				names = append(names, p.ExecName)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}
