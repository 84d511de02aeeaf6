// pkg/reconcile/engine_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: /bin/sh, SQLite store, temporary filesystem
// PURPOSE: Test full reconciliation runs against real bridges, store and load path

package reconcile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/bridgepm/pkg/bridge"
	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/filesystem"
	"github.com/arthur-debert/bridgepm/pkg/links"
	"github.com/arthur-debert/bridgepm/pkg/reconcile"
	"github.com/arthur-debert/bridgepm/pkg/store"
	"github.com/arthur-debert/bridgepm/pkg/testutil"
	"github.com/arthur-debert/bridgepm/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	layout *testutil.Layout
	store  *store.Store
	links  *links.Manager
	engine *reconcile.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := testutil.NewLayout(t)
	fsys := filesystem.NewOS()

	st, err := store.Open(context.Background(), l.Store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	lm, err := links.New(fsys, l.Links)
	require.NoError(t, err)

	eng := reconcile.New(reconcile.Options{
		Store:   st,
		Bridges: bridge.NewRegistry(fsys, l.Bridges),
		Invoker: bridge.NewInvoker(bridge.InvokerOptions{
			FS:        fsys,
			Timeout:   10 * time.Second,
			TargetDir: l.Target,
			LogDir:    l.Logs,
		}),
		Links:   lm,
		FS:      fsys,
		Workers: 2,
	})
	return &harness{layout: l, store: st, links: lm, engine: eng}
}

func (h *harness) run(t *testing.T, mode reconcile.Mode, decl []types.DeclaredPackage, targets ...string) *types.Report {
	t.Helper()
	report, err := h.engine.Run(context.Background(), reconcile.Request{Mode: mode, Declared: decl, Targets: targets})
	require.NoError(t, err)
	return report
}

func (h *harness) get(t *testing.T, name string) (types.InstalledPackage, bool) {
	t.Helper()
	pkg, ok, err := h.store.Get(context.Background(), name)
	require.NoError(t, err)
	return pkg, ok
}

func (h *harness) link(name string) string {
	return filepath.Join(h.layout.Links, name)
}

func statuses(r *types.Report) map[string]types.Status {
	out := map[string]types.Status{}
	for _, res := range r.Results {
		out[res.ExecName] = res.Status
	}
	return out
}

func TestRunInstallsAndLinks(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "pkgA", testutil.SingleFileBridge)

	bat := declared("bat", "pkgA", "bat", types.Option{Name: "VERSION", Value: types.StringValue("1.4.2")})
	report := h.run(t, reconcile.ModeSync, []types.DeclaredPackage{bat})

	require.Len(t, report.Results, 1)
	assert.Equal(t, types.StatusInstalled, report.Results[0].Status)
	assert.Equal(t, "1.4.2", report.Results[0].Version)
	assert.Equal(t, 0, report.ExitCode())

	pkg, ok := h.get(t, "bat")
	require.True(t, ok)
	expectedPath := filepath.Join(h.layout.Target, "pkgA", "bat")
	assert.Equal(t, expectedPath, pkg.Path)
	assert.Equal(t, "1.4.2", pkg.Version)
	assert.Equal(t, types.SingleExecutable, pkg.Type)
	assert.Equal(t, "bat", pkg.Input)
	testutil.AssertSymlink(t, h.link("bat"), expectedPath)
}

func TestRunDirectoryPackage(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "github", testutil.DirectoryBridge)

	report := h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("nvim", "github", "neovim/neovim")})
	assert.Equal(t, types.StatusInstalled, report.Results[0].Status)

	pkg, ok := h.get(t, "nvim")
	require.True(t, ok)
	assert.Equal(t, types.Directory, pkg.Type)
	assert.Equal(t, filepath.Join("bin", "nvim"), pkg.EntryPoint)
	testutil.AssertSymlink(t, h.link("nvim"), filepath.Join(h.layout.Target, "github", "nvim", "bin", "nvim"))
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)
	testutil.WriteBridge(t, h.layout.Bridges, "github", testutil.DirectoryBridge)
	decl := []types.DeclaredPackage{
		declared("bat", "cargo", "bat"),
		declared("nvim", "github", "neovim/neovim"),
	}

	h.run(t, reconcile.ModeSync, decl)
	first, err := h.store.Snapshot(context.Background())
	require.NoError(t, err)

	report := h.run(t, reconcile.ModeSync, decl)
	second, err := h.store.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, map[string]types.Status{"bat": types.StatusSkipped, "nvim": types.StatusSkipped}, statuses(report))
	assert.Equal(t, []string{"install bat"}, testutil.Calls(t, h.layout.Bridges, "cargo"))
	assert.Equal(t, []string{"install nvim"}, testutil.Calls(t, h.layout.Bridges, "github"))
}

func TestRunRemovesUndeclared(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)
	h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("bat", "cargo", "bat"), declared("rg", "cargo", "ripgrep")})

	report := h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("bat", "cargo", "bat")})
	assert.Equal(t, map[string]types.Status{"rg": types.StatusRemoved, "bat": types.StatusSkipped}, statuses(report))

	_, ok := h.get(t, "rg")
	assert.False(t, ok)
	testutil.AssertNoEntry(t, h.link("rg"))
	testutil.AssertNoEntry(t, filepath.Join(h.layout.Target, "cargo", "rg"))

	_, ok = h.get(t, "bat")
	assert.True(t, ok)
	testutil.AssertSymlink(t, h.link("bat"), filepath.Join(h.layout.Target, "cargo", "bat"))
}

func TestRunDefaultRemove(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "lazy", testutil.DeferringBridge)
	h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("fzf", "lazy", "junegunn/fzf")})

	pkg, ok := h.get(t, "fzf")
	require.True(t, ok)
	require.FileExists(t, pkg.Path)

	report := h.run(t, reconcile.ModeSync, nil)
	require.Len(t, report.Results, 1)
	assert.Equal(t, types.StatusRemoved, report.Results[0].Status)

	testutil.AssertNoEntry(t, pkg.Path)
	testutil.AssertNoEntry(t, h.link("fzf"))
	_, ok = h.get(t, "fzf")
	assert.False(t, ok)
	assert.Equal(t, []string{"install fzf", "remove fzf"}, testutil.Calls(t, h.layout.Bridges, "lazy"))
}

func TestRunExplicitUpdate(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "github", testutil.DirectoryBridge)
	testutil.WriteBridge(t, h.layout.Bridges, "lazy", testutil.DeferringBridge)
	decl := []types.DeclaredPackage{
		declared("nvim", "github", "neovim/neovim"),
		declared("fzf", "lazy", "junegunn/fzf"),
	}
	h.run(t, reconcile.ModeSync, decl)

	report := h.run(t, reconcile.ModeUpdate, decl, "nvim")
	require.Len(t, report.Results, 1)
	assert.Equal(t, types.StatusUpdated, report.Results[0].Status)
	assert.Equal(t, types.VersionSame, report.Results[0].Change)
	assert.Equal(t, []string{"install nvim", "update nvim"}, testutil.Calls(t, h.layout.Bridges, "github"))

	report = h.run(t, reconcile.ModeUpdate, decl, "fzf")
	assert.Equal(t, types.StatusUpdated, report.Results[0].Status)
	assert.Equal(t, []string{"install fzf", "update fzf", "install fzf"}, testutil.Calls(t, h.layout.Bridges, "lazy"))
	pkg, _ := h.get(t, "fzf")
	testutil.AssertSymlink(t, h.link("fzf"), pkg.Path)
}

func TestRunOptionsChangeUpdates(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)
	v := func(s string) types.Option { return types.Option{Name: "VERSION", Value: types.StringValue(s)} }

	h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("bat", "cargo", "bat", v("1.0.0"))})
	report := h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("bat", "cargo", "bat", v("1.1.0"))})

	res := report.Results[0]
	assert.Equal(t, types.ActionUpdate, res.Action)
	assert.Equal(t, types.StatusUpdated, res.Status)
	assert.Equal(t, "1.0.0", res.PreviousVersion)
	assert.Equal(t, "1.1.0", res.Version)
	assert.Equal(t, types.VersionUpgrade, res.Change)

	pkg, _ := h.get(t, "bat")
	assert.Equal(t, "1.1.0", pkg.Version)
	got, _ := pkg.Options.Get("VERSION")
	assert.Equal(t, "1.1.0", got.String())
}

func TestRunFailureIsIsolated(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)
	testutil.WriteBridge(t, h.layout.Bridges, "broken", testutil.FailingBridge)

	report := h.run(t, reconcile.ModeSync, []types.DeclaredPackage{
		declared("bat", "cargo", "bat"),
		declared("bad", "broken", "bad-input"),
		declared("rg", "cargo", "ripgrep"),
		declared("ghost", "missing", "ghost"),
	})

	assert.Equal(t, map[string]types.Status{
		"bat":   types.StatusInstalled,
		"bad":   types.StatusFailed,
		"rg":    types.StatusInstalled,
		"ghost": types.StatusFailed,
	}, statuses(report))
	assert.Equal(t, 1, report.ExitCode())

	failures := report.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, "bad", failures[0].ExecName)
	assert.Equal(t, string(errors.CategoryBridgeExecution), failures[0].Category)
	assert.Contains(t, failures[0].Reason, "cannot install bad-input")
	assert.Equal(t, "ghost", failures[1].ExecName)
	assert.Equal(t, string(errors.CategoryBridgeResolution), failures[1].Category)

	_, ok := h.get(t, "bad")
	assert.False(t, ok)
	testutil.AssertNoEntry(t, h.link("bad"))
}

func TestRunBridgeChangeReplaces(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)
	testutil.WriteBridge(t, h.layout.Bridges, "github", testutil.DirectoryBridge)
	h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("bat", "cargo", "bat")})

	report := h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("bat", "github", "sharkdp/bat")})
	require.Len(t, report.Results, 1)
	assert.Equal(t, types.ActionReplace, report.Results[0].Action)
	assert.Equal(t, types.StatusInstalled, report.Results[0].Status)

	pkg, ok := h.get(t, "bat")
	require.True(t, ok)
	assert.Equal(t, "github", pkg.Bridge)
	testutil.AssertNoEntry(t, filepath.Join(h.layout.Target, "cargo", "bat"))
	testutil.AssertSymlink(t, h.link("bat"), pkg.LinkTarget())
	assert.Equal(t, []string{"install bat", "remove bat"}, testutil.Calls(t, h.layout.Bridges, "cargo"))
}

func TestRunReplaceStopsWhenRemoveFails(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "apt", testutil.SingleFileBridge)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)
	h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("bat", "apt", "bat")})

	testutil.WriteBridge(t, h.layout.Bridges, "apt", testutil.FailingBridge)
	report := h.run(t, reconcile.ModeSync, []types.DeclaredPackage{declared("bat", "cargo", "bat")})

	require.Len(t, report.Results, 1)
	assert.Equal(t, types.StatusFailed, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Reason, "previous package could not be removed")
	assert.Nil(t, testutil.Calls(t, h.layout.Bridges, "cargo"))

	pkg, ok := h.get(t, "bat")
	require.True(t, ok)
	assert.Equal(t, "apt", pkg.Bridge)
	assert.True(t, pkg.PendingRemoval)
}

func TestRunReinstallsMissingFiles(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)
	decl := []types.DeclaredPackage{declared("bat", "cargo", "bat")}
	h.run(t, reconcile.ModeSync, decl)

	pkg, _ := h.get(t, "bat")
	require.NoError(t, os.Remove(pkg.Path))

	report := h.run(t, reconcile.ModeSync, decl)
	assert.Equal(t, types.ActionReplace, report.Results[0].Action)
	assert.Equal(t, types.StatusInstalled, report.Results[0].Status)
	assert.FileExists(t, pkg.Path)
}

func TestRunReinstallsMissingEntryPoint(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "github", testutil.DirectoryBridge)
	decl := []types.DeclaredPackage{declared("nvim", "github", "neovim/neovim")}
	h.run(t, reconcile.ModeSync, decl)

	pkg, _ := h.get(t, "nvim")
	require.NoError(t, os.Remove(pkg.LinkTarget()))
	require.DirExists(t, pkg.Path)

	report := h.run(t, reconcile.ModeSync, decl)
	assert.Equal(t, types.ActionReplace, report.Results[0].Action)
	assert.Equal(t, types.StatusInstalled, report.Results[0].Status)
	assert.FileExists(t, pkg.LinkTarget())
	testutil.AssertSymlink(t, h.link("nvim"), pkg.LinkTarget())
}

func TestRunRestoresMissingLink(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)
	decl := []types.DeclaredPackage{declared("bat", "cargo", "bat")}
	h.run(t, reconcile.ModeSync, decl)
	require.NoError(t, os.Remove(h.link("bat")))

	report := h.run(t, reconcile.ModeSync, decl)
	assert.Equal(t, types.StatusSkipped, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Reason, "link restored")

	pkg, _ := h.get(t, "bat")
	testutil.AssertSymlink(t, h.link("bat"), pkg.Path)
	assert.Equal(t, []string{"install bat"}, testutil.Calls(t, h.layout.Bridges, "cargo"))
}

func TestRunExplicitRemove(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)
	decl := []types.DeclaredPackage{declared("bat", "cargo", "bat"), declared("rg", "cargo", "ripgrep")}
	h.run(t, reconcile.ModeSync, decl)

	report := h.run(t, reconcile.ModeRemove, decl, "rg", "fd")
	assert.Equal(t, map[string]types.Status{"rg": types.StatusRemoved, "fd": types.StatusFailed}, statuses(report))
	_, ok := h.get(t, "rg")
	assert.False(t, ok)
	_, ok = h.get(t, "bat")
	assert.True(t, ok)
}

func TestRunCancelled(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)

	ctx, cancel := context.WithCancel(context.Background())
	plan, err := h.engine.Plan(ctx, reconcile.Request{
		Mode:     reconcile.ModeSync,
		Declared: []types.DeclaredPackage{declared("bat", "cargo", "bat"), declared("rg", "cargo", "ripgrep")},
	})
	require.NoError(t, err)
	cancel()

	report := h.engine.Apply(ctx, plan)
	assert.True(t, report.Cancelled)
	assert.Equal(t, 2, report.Count(types.StatusFailed))
	assert.Equal(t, 1, report.ExitCode())
	assert.Nil(t, testutil.Calls(t, h.layout.Bridges, "cargo"))

	snap, err := h.store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestRunConcurrentInstalls(t *testing.T) {
	h := newHarness(t)
	testutil.WriteBridge(t, h.layout.Bridges, "cargo", testutil.SingleFileBridge)

	var decl []types.DeclaredPackage
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		decl = append(decl, declared(name, "cargo", name))
	}
	report := h.run(t, reconcile.ModeSync, decl)
	assert.Equal(t, 6, report.Count(types.StatusInstalled))

	for i, res := range report.Results {
		assert.Equal(t, decl[i].ExecName, res.ExecName)
	}
	snap, err := h.store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap, 6)
}
