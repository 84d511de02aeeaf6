package reconcile

import (
	"sort"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/types"
)

// Mode selects how the declared set and the store are compared.
type Mode string

const (
	// ModeSync installs new packages, removes undeclared ones, replaces
	// packages whose bridge or input changed and updates those whose options
	// changed. Everything else is left alone.
	ModeSync Mode = "build"
	// ModeSyncUpdate is ModeSync that also updates unchanged packages.
	ModeSyncUpdate Mode = "build --update"
	// ModeRebuild is ModeSync that replaces every declared installed package.
	ModeRebuild Mode = "rebuild"
	// ModeUpdate forces update on the targeted installed packages.
	ModeUpdate Mode = "update"
	// ModeRemove forces removal of the targeted installed packages.
	ModeRemove Mode = "remove"
)

// Task is the work decided for one exec name.
type Task struct {
	Action   types.Action
	ExecName string
	// Bridge, Input and Options describe the package to install or update.
	Bridge  string
	Input   string
	Options types.Options
	// Installed is the store record the task starts from, if any.
	Installed *types.InstalledPackage
	// Reason explains why the action was chosen.
	Reason string
	// Err marks a task that fails without running, such as an unknown target.
	Err error
}

// Removes reports whether the task has a remove step.
func (t *Task) Removes() bool {
	return t.Err == nil && (t.Action == types.ActionRemove || t.Action == types.ActionReplace)
}

// Installs reports whether the task has an install or update step.
func (t *Task) Installs() bool {
	return t.Err == nil && (t.Action == types.ActionInstall || t.Action == types.ActionUpdate || t.Action == types.ActionReplace)
}

// Plan is the ordered list of tasks for one run. Undeclared removals come
// first by exec name, then declared packages in declaration order.
type Plan struct {
	Mode  Mode
	Tasks []*Task
}

// Count returns the number of tasks with action a.
func (p *Plan) Count(a types.Action) int {
	n := 0
	for _, t := range p.Tasks {
		if t.Action == a && t.Err == nil {
			n++
		}
	}
	return n
}

// Exists reports whether a recorded package path is still present.
type Exists func(path string) bool

// Compute diffs declared against the installed snapshot. targets scopes
// ModeUpdate and ModeRemove; an empty target list for ModeUpdate selects
// every installed package.
func Compute(mode Mode, declared []types.DeclaredPackage, installed map[string]types.InstalledPackage, targets []string, exists Exists) (*Plan, error) {
	byName := make(map[string]types.DeclaredPackage, len(declared))
	for _, d := range declared {
		if _, dup := byName[d.ExecName]; dup {
			return nil, errors.Newf(errors.ErrInputDuplicate, "package %s is declared more than once", d.ExecName)
		}
		byName[d.ExecName] = d
	}
	if exists == nil {
		exists = func(string) bool { return true }
	}

	plan := &Plan{Mode: mode}
	switch mode {
	case ModeSync, ModeSyncUpdate, ModeRebuild:
		plan.Tasks = syncTasks(mode, declared, byName, installed, exists)
	case ModeUpdate:
		plan.Tasks = updateTasks(targets, byName, installed)
	case ModeRemove:
		if len(targets) == 0 {
			return nil, errors.New(errors.ErrInvalidInput, "remove needs at least one package name")
		}
		plan.Tasks = removeTasks(targets, installed)
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unknown reconciliation mode %q", mode)
	}
	return plan, nil
}

func syncTasks(mode Mode, declared []types.DeclaredPackage, byName map[string]types.DeclaredPackage, installed map[string]types.InstalledPackage, exists Exists) []*Task {
	var tasks []*Task

	for _, name := range sortedNames(installed) {
		if _, ok := byName[name]; ok {
			continue
		}
		pkg := installed[name]
		tasks = append(tasks, &Task{
			Action:    types.ActionRemove,
			ExecName:  name,
			Bridge:    pkg.Bridge,
			Input:     pkg.Input,
			Options:   pkg.Options,
			Installed: &pkg,
			Reason:    "no longer declared",
		})
	}

	for _, d := range declared {
		t := &Task{ExecName: d.ExecName, Bridge: d.Bridge, Input: d.Input, Options: d.Options}
		pkg, ok := installed[d.ExecName]
		if !ok {
			t.Action, t.Reason = types.ActionInstall, "new package"
			tasks = append(tasks, t)
			continue
		}
		t.Installed = &pkg

		switch {
		case pkg.PendingRemoval:
			t.Action, t.Reason = types.ActionReplace, "previous removal did not finish"
		case pkg.Bridge != d.Bridge:
			t.Action, t.Reason = types.ActionReplace, "bridge changed from "+pkg.Bridge
		case pkg.Input != d.Input:
			t.Action, t.Reason = types.ActionReplace, "input changed from "+pkg.Input
		case !exists(pkg.LinkTarget()):
			t.Action, t.Reason = types.ActionReplace, "installed files are missing"
		case mode == ModeRebuild:
			t.Action, t.Reason = types.ActionReplace, "rebuild"
		case !pkg.Options.Equal(d.Options):
			t.Action, t.Reason = types.ActionUpdate, "options changed"
		case mode == ModeSyncUpdate:
			t.Action, t.Reason = types.ActionUpdate, "update requested"
		default:
			t.Action, t.Reason = types.ActionNone, "up to date"
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// updateTasks targets installed rows. A declared package keeps its stored
// bridge but runs with its declared input and options.
func updateTasks(targets []string, byName map[string]types.DeclaredPackage, installed map[string]types.InstalledPackage) []*Task {
	if len(targets) == 0 {
		targets = sortedNames(installed)
	}

	tasks := make([]*Task, 0, len(targets))
	for _, name := range dedupe(targets) {
		pkg, ok := installed[name]
		if !ok {
			tasks = append(tasks, notInstalled(types.ActionUpdate, name))
			continue
		}
		t := &Task{
			Action:    types.ActionUpdate,
			ExecName:  name,
			Bridge:    pkg.Bridge,
			Input:     pkg.Input,
			Options:   pkg.Options,
			Installed: &pkg,
			Reason:    "update requested",
		}
		if d, ok := byName[name]; ok && d.Bridge == pkg.Bridge {
			t.Input, t.Options = d.Input, d.Options
		}
		if pkg.PendingRemoval {
			t.Action, t.Reason = types.ActionNone, "removal pending, run build to finish it"
		}
		tasks = append(tasks, t)
	}
	return tasks
}

func removeTasks(targets []string, installed map[string]types.InstalledPackage) []*Task {
	tasks := make([]*Task, 0, len(targets))
	for _, name := range dedupe(targets) {
		pkg, ok := installed[name]
		if !ok {
			tasks = append(tasks, notInstalled(types.ActionRemove, name))
			continue
		}
		tasks = append(tasks, &Task{
			Action:    types.ActionRemove,
			ExecName:  name,
			Bridge:    pkg.Bridge,
			Input:     pkg.Input,
			Options:   pkg.Options,
			Installed: &pkg,
			Reason:    "remove requested",
		})
	}
	return tasks
}

func notInstalled(action types.Action, name string) *Task {
	return &Task{
		Action:   action,
		ExecName: name,
		Err:      errors.Newf(errors.ErrNotFound, "%s is not installed", name),
	}
}

func sortedNames(installed map[string]types.InstalledPackage) []string {
	names := make([]string, 0, len(installed))
	for name := range installed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
