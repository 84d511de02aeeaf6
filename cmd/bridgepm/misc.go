package bridgepm

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/arthur-debert/bridgepm/internal/version"
	"github.com/arthur-debert/bridgepm/pkg/cobrax/topics"
	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/spf13/cobra"
)

//go:embed docs/*.md
var docsFS embed.FS

func newCleanCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "clean",
		Short:   MsgCleanShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}

			cleaned := 0
			for _, dir := range []string{a.paths.BridgeLogDir(), a.paths.CacheDir()} {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					continue
				}
				if err := a.fs.RemoveAll(dir); err != nil {
					return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove %s", dir)
				}
				logger := logging.GetLogger("cli.clean")
				logger.Debug().Str("dir", dir).Msg("Removed")
				if err := a.renderer.RenderMessage(fmt.Sprintf(MsgCleanedFormat, dir)); err != nil {
					return err
				}
				cleaned++
			}
			if cleaned == 0 {
				return a.renderer.RenderMessage(MsgNothingToClean)
			}
			return nil
		},
	}
}

func newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "docs [guide]",
		Short:   MsgDocsShort,
		GroupID: "misc",
		Args:    cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			m, err := guides(false)
			if err != nil || len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return m.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			m, err := guides(out == os.Stdout && stdoutIsTerminal())
			if err != nil {
				return err
			}

			if len(args) == 0 {
				_, _ = fmt.Fprintln(out, MsgDocsTopics)
				for _, name := range m.Names() {
					_, _ = fmt.Fprintf(out, MsgDocsItem, name)
				}
				return nil
			}

			rendered, ok := m.Render(args[0])
			if !ok {
				return fmt.Errorf(MsgErrUnknownTopic, args[0])
			}
			_, err = fmt.Fprint(out, rendered)
			return err
		},
	}
}

// guides indexes the embedded user guide. Markdown is styled only for a
// terminal.
func guides(styled bool) (*topics.Manager, error) {
	sub, err := fs.Sub(docsFS, "docs")
	if err != nil {
		return nil, err
	}
	var renderer topics.Renderer = &topics.PlainRenderer{}
	if styled {
		renderer = topics.NewGlamourRenderer()
	}
	return topics.New(sub, topics.Options{Extensions: []string{".md"}, Renderer: renderer})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), MsgVersionFormat, version.Version, version.Commit, version.Date)
			return err
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
