package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/arthur-debert/bridgepm/pkg/bridge"
	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/filesystem"
	"github.com/arthur-debert/bridgepm/pkg/links"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent pipelines when Options.Workers is unset.
const DefaultWorkers = 4

// Store is the part of the package store the engine mutates.
type Store interface {
	Snapshot(ctx context.Context) (map[string]types.InstalledPackage, error)
	Upsert(ctx context.Context, pkg types.InstalledPackage) error
	MarkPendingRemoval(ctx context.Context, execName string) error
	Delete(ctx context.Context, execName string) error
}

// Resolver finds bridges by name.
type Resolver interface {
	Resolve(name string) (types.Bridge, error)
}

// Binder turns a resolved bridge into its raw operations.
type Binder interface {
	Bind(b types.Bridge) bridge.Operations
}

// Linker maintains the load path.
type Linker interface {
	Link(execName, target string) error
	Unlink(execName string) error
	Check(pkg types.InstalledPackage) links.State
}

// Options configures an Engine.
type Options struct {
	Store   Store
	Bridges Resolver
	Invoker Binder
	Links   Linker
	Workers int
	Logger  zerolog.Logger
	// FS is used for default operations and path checks.
	FS types.FS
}

// Engine applies plans.
type Engine struct {
	store    Store
	bridges  Resolver
	invoker  Binder
	links    Linker
	defaults *bridge.Defaults
	fs       types.FS
	workers  int
	logger   zerolog.Logger
}

// New creates an engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("reconcile")
	}
	fs := opts.FS
	if fs == nil {
		fs = filesystem.NewOS()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	return &Engine{
		store:    opts.Store,
		bridges:  opts.Bridges,
		invoker:  opts.Invoker,
		links:    opts.Links,
		defaults: bridge.NewDefaults(fs, opts.Links),
		fs:       fs,
		workers:  workers,
		logger:   logger,
	}
}

// Request describes one reconciliation run.
type Request struct {
	Mode     Mode
	Declared []types.DeclaredPackage
	// Targets scopes ModeUpdate and ModeRemove.
	Targets []string
}

// Plan snapshots the store and computes the tasks for req without running
// anything.
func (e *Engine) Plan(ctx context.Context, req Request) (*Plan, error) {
	installed, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Compute(req.Mode, req.Declared, installed, req.Targets, e.exists)
}

// Run plans and applies req. The returned error is reserved for failures
// that stop the run before any package is touched; package failures are in
// the report.
func (e *Engine) Run(ctx context.Context, req Request) (*types.Report, error) {
	plan, err := e.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.Apply(ctx, plan), nil
}

// Apply runs every removal, then every install and update. Each phase runs
// up to the configured number of pipelines at once. A failing package never
// stops the others; cancellation stops scheduling and marks the remaining
// packages failed.
func (e *Engine) Apply(ctx context.Context, plan *Plan) *types.Report {
	report := &types.Report{Command: string(plan.Mode), StartedAt: time.Now()}
	done := logging.LogOperationStart(e.logger, string(plan.Mode))
	defer done()

	e.logger.Info().
		Int("tasks", len(plan.Tasks)).
		Int("install", plan.Count(types.ActionInstall)).
		Int("update", plan.Count(types.ActionUpdate)).
		Int("replace", plan.Count(types.ActionReplace)).
		Int("remove", plan.Count(types.ActionRemove)).
		Int("workers", e.workers).
		Msg("Applying plan")

	removed := make([]*types.OperationResult, len(plan.Tasks))
	e.phase(ctx, plan.Tasks, (*Task).Removes, func(ctx context.Context, _ int, t *Task) types.OperationResult {
		return e.remove(ctx, t)
	}, removed)

	results := make([]*types.OperationResult, len(plan.Tasks))
	e.phase(ctx, plan.Tasks, func(t *Task) bool { return t.Err == nil && t.Action != types.ActionRemove },
		func(ctx context.Context, i int, t *Task) types.OperationResult {
			if r := removed[i]; t.Action == types.ActionReplace && r != nil && r.Status == types.StatusFailed {
				return replaceAborted(t, *r)
			}
			return e.install(ctx, t)
		}, results)

	for i, t := range plan.Tasks {
		switch {
		case t.Err != nil:
			report.Results = append(report.Results, failed(t, t.Err, 0))
		case t.Action == types.ActionRemove:
			report.Results = append(report.Results, *removed[i])
		default:
			report.Results = append(report.Results, *results[i])
		}
	}

	report.Cancelled = ctx.Err() != nil
	report.Duration = time.Since(report.StartedAt)
	e.logger.Info().
		Int("failed", report.Count(types.StatusFailed)).
		Bool("cancelled", report.Cancelled).
		Msg("Plan applied")
	return report
}

type pipeline func(ctx context.Context, i int, t *Task) types.OperationResult

// phase runs fn for every selected task and stores results by task index.
func (e *Engine) phase(ctx context.Context, tasks []*Task, selected func(*Task) bool, fn pipeline, out []*types.OperationResult) {
	var g errgroup.Group
	g.SetLimit(e.workers)

	for i, t := range tasks {
		if !selected(t) {
			continue
		}
		if err := ctx.Err(); err != nil {
			r := failed(t, errors.Wrap(err, errors.ErrCancelled, "cancelled"), 0)
			out[i] = &r
			continue
		}
		i, t := i, t
		g.Go(func() error {
			r := fn(ctx, i, t)
			out[i] = &r
			return nil
		})
	}
	_ = g.Wait()
}

// remove runs the removal pipeline: mark the row, remove through the bridge
// or the default, drop the link, delete the row.
func (e *Engine) remove(ctx context.Context, t *Task) types.OperationResult {
	start := time.Now()
	prior := *t.Installed
	logger := e.logger.With().Str("exec_name", t.ExecName).Str("bridge", prior.Bridge).Logger()

	b, err := e.bridges.Resolve(prior.Bridge)
	if err != nil {
		return failed(t, err, time.Since(start))
	}
	if err := e.store.MarkPendingRemoval(ctx, t.ExecName); err != nil {
		return failed(t, err, time.Since(start))
	}

	req := types.Request{ExecName: t.ExecName, Input: prior.Input, Options: prior.Options, Prior: &prior}
	out := e.operations(b).Remove(ctx, req)
	if out.Kind != types.OutcomeSuccess {
		return failed(t, outcomeError(out), time.Since(start))
	}
	if err := e.links.Unlink(t.ExecName); err != nil {
		return failed(t, err, time.Since(start))
	}
	if err := e.store.Delete(ctx, t.ExecName); err != nil {
		return failed(t, err, time.Since(start))
	}

	logger.Info().Str("version", prior.Version).Msg("Package removed")
	return types.OperationResult{
		ExecName: t.ExecName,
		Bridge:   prior.Bridge,
		Action:   t.Action,
		Status:   types.StatusRemoved,
		Version:  prior.Version,
		Reason:   t.Reason,
		Duration: time.Since(start),
	}
}

// install runs the install or update pipeline: invoke, link, then record.
// An up to date package only gets its link checked.
func (e *Engine) install(ctx context.Context, t *Task) types.OperationResult {
	start := time.Now()
	if t.Action == types.ActionNone {
		return e.keep(t, start)
	}
	logger := e.logger.With().Str("exec_name", t.ExecName).Str("bridge", t.Bridge).Str("action", string(t.Action)).Logger()

	b, err := e.bridges.Resolve(t.Bridge)
	if err != nil {
		return failed(t, err, time.Since(start))
	}

	req := types.Request{ExecName: t.ExecName, Input: t.Input, Options: t.Options}
	ops := e.operations(b)
	var out types.Outcome
	if t.Action == types.ActionUpdate {
		req.Prior = t.Installed
		out = ops.Update(ctx, req)
	} else {
		out = ops.Install(ctx, req)
	}
	if out.Kind != types.OutcomeSuccess {
		return failed(t, outcomeError(out), time.Since(start))
	}
	if out.Artifact == nil {
		return failed(t, errors.Newf(errors.ErrBridgeContractViolated, "bridge %s reported success without an artifact", b.Name), time.Since(start))
	}

	pkg := out.Artifact.Installed(req, b.Name)
	if err := pkg.Validate(); err != nil {
		return failed(t, errors.Wrap(err, errors.ErrBridgeMalformedOutput, "bridge reported an unusable package"), time.Since(start))
	}
	if err := e.links.Link(t.ExecName, pkg.LinkTarget()); err != nil {
		return failed(t, err, time.Since(start))
	}
	if err := e.store.Upsert(ctx, pkg); err != nil {
		if uerr := e.links.Unlink(t.ExecName); uerr != nil {
			logger.Warn().Err(uerr).Msg("Failed to drop link of unrecorded package")
		}
		return failed(t, err, time.Since(start))
	}

	result := types.OperationResult{
		ExecName: t.ExecName,
		Bridge:   b.Name,
		Action:   t.Action,
		Status:   types.StatusInstalled,
		Version:  pkg.Version,
		Reason:   t.Reason,
		Duration: time.Since(start),
	}
	if t.Action == types.ActionUpdate {
		result.Status = types.StatusUpdated
	}
	if t.Installed != nil {
		result.PreviousVersion = t.Installed.Version
		result.Change = types.CompareVersions(t.Installed.Version, pkg.Version)
	}

	logger.Info().Str("version", pkg.Version).Str("path", pkg.Path).Msg("Package recorded")
	return result
}

// keep restores the link of an up to date package if it went missing.
func (e *Engine) keep(t *Task, start time.Time) types.OperationResult {
	result := types.OperationResult{
		ExecName: t.ExecName,
		Bridge:   t.Bridge,
		Action:   t.Action,
		Status:   types.StatusSkipped,
		Reason:   t.Reason,
	}
	if t.Installed == nil {
		result.Duration = time.Since(start)
		return result
	}
	result.Version = t.Installed.Version

	if !t.Installed.PendingRemoval {
		if state := e.links.Check(*t.Installed); state != links.StateOK {
			if err := e.links.Link(t.ExecName, t.Installed.LinkTarget()); err != nil {
				return failed(t, err, time.Since(start))
			}
			result.Reason = fmt.Sprintf("%s, link restored (was %s)", t.Reason, state)
		}
	}
	result.Duration = time.Since(start)
	return result
}

func (e *Engine) operations(b types.Bridge) bridge.Operations {
	return bridge.WithDefaults(e.invoker.Bind(b), e.defaults)
}

func (e *Engine) exists(path string) bool {
	_, err := e.fs.Stat(path)
	return err == nil
}

func replaceAborted(t *Task, removal types.OperationResult) types.OperationResult {
	err := errors.Wrap(removal.Err, errors.GetErrorCode(removal.Err), "previous package could not be removed")
	return failed(t, err, 0)
}

func failed(t *Task, err error, d time.Duration) types.OperationResult {
	r := types.OperationResult{
		ExecName: t.ExecName,
		Bridge:   t.Bridge,
		Action:   t.Action,
		Status:   types.StatusFailed,
		Reason:   errors.Message(err),
		Category: string(errors.CategoryOf(err)),
		Err:      err,
		Duration: d,
	}
	if t.Installed != nil {
		r.Version = t.Installed.Version
	}
	return r
}

func outcomeError(out types.Outcome) error {
	if out.Err != nil {
		return out.Err
	}
	return errors.Newf(errors.ErrInternal, "unexpected bridge outcome %s", out.Kind)
}
