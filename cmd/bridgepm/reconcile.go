package bridgepm

import (
	"fmt"
	"os"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/inputs"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/reconcile"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/arthur-debert/bridgepm/pkg/ui"
	"github.com/spf13/cobra"
)

// runFlags are shared by every command that changes installed packages.
type runFlags struct {
	dryRun    bool
	reportXML string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.dryRun, "dry-run", "n", false, MsgFlagDryRun)
	cmd.Flags().StringVar(&f.reportXML, "report-xml", "", MsgFlagReportXML)
}

// inputsPolicy says whether a command needs the declared package set.
type inputsPolicy int

const (
	inputsRequired inputsPolicy = iota
	inputsOptional
	inputsIgnored
)

func newBuildCmd(opts *globalOptions) *cobra.Command {
	var flags runFlags
	var update bool

	cmd := &cobra.Command{
		Use:     "build",
		Short:   MsgBuildShort,
		Long:    MsgBuildLong,
		Example: MsgBuildExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := reconcile.ModeSync
			if update {
				mode = reconcile.ModeSyncUpdate
			}
			return runReconcile(cmd, opts, &flags, mode, inputsRequired, nil)
		},
	}
	cmd.Flags().BoolVarP(&update, "update", "u", false, MsgFlagUpdate)
	flags.register(cmd)
	return cmd
}

func newRebuildCmd(opts *globalOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:     "rebuild",
		Short:   MsgRebuildShort,
		Long:    MsgRebuildLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, opts, &flags, reconcile.ModeRebuild, inputsRequired, nil)
		},
	}
	flags.register(cmd)
	return cmd
}

func newUpdateCmd(opts *globalOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:               "update [exec_name...]",
		Short:             MsgUpdateShort,
		Long:              MsgUpdateLong,
		Example:           MsgUpdateExample,
		GroupID:           "core",
		ValidArgsFunction: completeInstalled(opts),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, opts, &flags, reconcile.ModeUpdate, inputsOptional, args)
		},
	}
	flags.register(cmd)
	return cmd
}

func newRemoveCmd(opts *globalOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:               "remove <exec_name>...",
		Aliases:           []string{"rm"},
		Short:             MsgRemoveShort,
		Long:              MsgRemoveLong,
		GroupID:           "core",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeInstalled(opts),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, opts, &flags, reconcile.ModeRemove, inputsIgnored, args)
		},
	}
	flags.register(cmd)
	return cmd
}

// runReconcile plans mode against the store and either prints the plan or
// applies it. Package failures are reported and turned into
// ErrPackagesFailed; anything returned earlier aborted the run before a
// package was touched.
func runReconcile(cmd *cobra.Command, opts *globalOptions, flags *runFlags, mode reconcile.Mode, policy inputsPolicy, targets []string) error {
	logger := logging.GetLogger("cli")

	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	declared, err := loadDeclared(a.cfg.Paths.Inputs, policy)
	if err != nil {
		return err
	}

	req := reconcile.Request{Mode: mode, Declared: declared, Targets: targets}
	if flags.dryRun {
		plan, err := a.engine.Plan(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := a.renderer.RenderReport(planReport(plan)); err != nil {
			return err
		}
		return a.renderer.RenderMessage(MsgDryRunNotice)
	}

	report, err := a.engine.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := a.renderer.RenderReport(report); err != nil {
		return err
	}
	if flags.reportXML != "" {
		if err := ui.WriteJUnitFile(flags.reportXML, report); err != nil {
			return err
		}
		logger.Debug().Str("file", flags.reportXML).Msg("JUnit report written")
	}

	logger.Info().
		Str("mode", string(mode)).
		Int("failed", report.Count(types.StatusFailed)).
		Bool("cancelled", report.Cancelled).
		Msg("Run finished")
	if report.ExitCode() != 0 {
		return ErrPackagesFailed
	}
	return nil
}

func loadDeclared(dir string, policy inputsPolicy) ([]types.DeclaredPackage, error) {
	switch policy {
	case inputsIgnored:
		return nil, nil
	case inputsOptional:
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			logger := logging.GetLogger("cli")
			logger.Debug().Str("dir", dir).Msg("No inputs directory, using recorded packages")
			return nil, nil
		}
	}
	return inputs.Load(dir)
}

// planReport renders a plan as a report of what would happen.
func planReport(plan *reconcile.Plan) *types.Report {
	report := &types.Report{Command: string(plan.Mode)}
	for _, t := range plan.Tasks {
		res := types.OperationResult{
			ExecName: t.ExecName,
			Bridge:   t.Bridge,
			Action:   t.Action,
			Status:   types.StatusSkipped,
			Reason:   t.Reason,
		}
		if t.Installed != nil {
			res.Version = t.Installed.Version
			if res.Bridge == "" {
				res.Bridge = t.Installed.Bridge
			}
		}
		switch {
		case t.Err != nil:
			res.Status = types.StatusFailed
			res.Reason = errors.Message(t.Err)
			res.Category = string(errors.CategoryOf(t.Err))
			res.Err = t.Err
		case t.Action != types.ActionNone:
			res.Reason = fmt.Sprintf(MsgWouldFormat, t.Action, t.Reason)
		}
		report.Results = append(report.Results, res)
	}
	return report
}
