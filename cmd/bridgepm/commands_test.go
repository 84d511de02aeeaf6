// cmd/bridgepm/commands_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: /bin/sh, SQLite store, temporary filesystem, environment
// PURPOSE: Test the command line end to end with JSON output

package bridgepm_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/bridgepm/cmd/bridgepm"
	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/testutil"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	root    string
	layout  *testutil.Layout
	dataDir string
	cache   string
	state   string
}

// newCLIEnv points every bridgepm directory into a temporary root.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	l := testutil.NewLayout(t)
	e := &cliEnv{
		root:    l.Root,
		layout:  l,
		dataDir: filepath.Join(l.Root, "data"),
		cache:   filepath.Join(l.Root, "cache"),
		state:   filepath.Join(l.Root, "state-home"),
	}

	t.Setenv("BRIDGEPM_CONFIG_DIR", filepath.Join(l.Root, "config"))
	t.Setenv("BRIDGEPM_DATA_DIR", e.dataDir)
	t.Setenv("BRIDGEPM_CACHE_DIR", e.cache)
	t.Setenv("BRIDGEPM_STATE_DIR", e.state)
	t.Setenv("BRIDGEPM_PATHS_BRIDGES", l.Bridges)
	t.Setenv("BRIDGEPM_PATHS_INPUTS", l.Inputs)
	t.Setenv("BRIDGEPM_PATHS_TARGET", l.Target)
	t.Setenv("BRIDGEPM_PATHS_LINKS", l.Links)
	t.Setenv("BRIDGEPM_PATHS_STORE", l.Store)
	t.Setenv("NO_COLOR", "1")
	return e
}

func (e *cliEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := bridgepm.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type resultJSON struct {
	ExecName string `json:"exec_name"`
	Bridge   string `json:"bridge"`
	Action   string `json:"action"`
	Status   string `json:"status"`
	Version  string `json:"version"`
	Reason   string `json:"reason"`
	Category string `json:"category"`
	Code     string `json:"code"`
}

type reportJSON struct {
	Command string         `json:"command"`
	Summary map[string]int `json:"summary"`
	Results []resultJSON   `json:"results"`
}

// decodeFirst decodes the first JSON document of out.
func decodeFirst(t *testing.T, out string, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(strings.NewReader(out)).Decode(v), "output: %s", out)
}

func byName(results []resultJSON) map[string]resultJSON {
	m := map[string]resultJSON{}
	for _, r := range results {
		m[r.ExecName] = r
	}
	return m
}

func TestBuildInstallsAndWritesJUnit(t *testing.T) {
	e := newCLIEnv(t)
	testutil.WriteBridge(t, e.layout.Bridges, "pkga", testutil.SingleFileBridge)
	e.layout.WriteInput(t, "cli.toml", "[pkga]\nbat = \"bat\"\n\n[pkga.fd]\ninput = \"fd-find\"\noptions = { VERSION = \"8.7.0\" }\n")

	xmlPath := filepath.Join(e.root, "reports", "build.xml")
	out, err := e.execute(t, "build", "--format", "json", "--report-xml", xmlPath)
	require.NoError(t, err)

	var report reportJSON
	decodeFirst(t, out, &report)
	assert.Equal(t, "build", report.Command)
	assert.Equal(t, 2, report.Summary["installed"])

	results := byName(report.Results)
	assert.Equal(t, "installed", results["bat"].Status)
	assert.Equal(t, "1.0.0", results["bat"].Version)
	assert.Equal(t, "8.7.0", results["fd"].Version)

	testutil.AssertSymlink(t, filepath.Join(e.layout.Links, "bat"), filepath.Join(e.layout.Target, "pkga", "bat"))
	testutil.AssertSymlink(t, filepath.Join(e.layout.Links, "fd"), filepath.Join(e.layout.Target, "pkga", "fd"))

	data, err := os.ReadFile(xmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `name="bridgepm build"`)

	// A second build has nothing to change.
	out, err = e.execute(t, "build", "--format", "json")
	require.NoError(t, err)
	report = reportJSON{}
	decodeFirst(t, out, &report)
	assert.Equal(t, 2, report.Summary["skipped"])
	assert.Len(t, testutil.Calls(t, e.layout.Bridges, "pkga"), 2)
}

func TestBuildReportsFailures(t *testing.T) {
	e := newCLIEnv(t)
	testutil.WriteBridge(t, e.layout.Bridges, "pkga", testutil.SingleFileBridge)
	testutil.WriteBridge(t, e.layout.Bridges, "broken", testutil.FailingBridge)
	e.layout.WriteInput(t, "cli.yaml", "pkga:\n  bat: bat\nbroken:\n  bad: bad-input\n")

	out, err := e.execute(t, "build", "--format", "json")
	require.ErrorIs(t, err, bridgepm.ErrPackagesFailed)

	var report reportJSON
	decodeFirst(t, out, &report)
	results := byName(report.Results)
	assert.Equal(t, "installed", results["bat"].Status)

	bad := results["bad"]
	assert.Equal(t, "failed", bad.Status)
	assert.Equal(t, "BridgeExecutionError", bad.Category)
	assert.Equal(t, string(errors.ErrBridgeNonZeroExit), bad.Code)
	assert.Contains(t, bad.Reason, "cannot install bad-input")
}

func TestBuildDryRunChangesNothing(t *testing.T) {
	e := newCLIEnv(t)
	testutil.WriteBridge(t, e.layout.Bridges, "pkga", testutil.SingleFileBridge)
	e.layout.WriteInput(t, "cli.toml", "[pkga]\nbat = \"bat\"\n")

	out, err := e.execute(t, "build", "--dry-run", "--format", "json")
	require.NoError(t, err)

	var report reportJSON
	decodeFirst(t, out, &report)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "skipped", report.Results[0].Status)
	assert.Equal(t, "install", report.Results[0].Action)
	assert.True(t, strings.HasPrefix(report.Results[0].Reason, "would install"))
	assert.Contains(t, out, "Dry run")

	testutil.AssertNoEntry(t, filepath.Join(e.layout.Links, "bat"))
	assert.Empty(t, testutil.Calls(t, e.layout.Bridges, "pkga"))
}

func TestBuildWithoutInputsFails(t *testing.T) {
	e := newCLIEnv(t)
	require.NoError(t, os.RemoveAll(e.layout.Inputs))

	_, err := e.execute(t, "build", "--format", "json")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestInfoRemoveAndLink(t *testing.T) {
	e := newCLIEnv(t)
	testutil.WriteBridge(t, e.layout.Bridges, "pkga", testutil.SingleFileBridge)
	testutil.WriteBridge(t, e.layout.Bridges, "dirs", testutil.DirectoryBridge)
	e.layout.WriteInput(t, "cli.toml", "[pkga]\nbat = \"bat\"\n\n[dirs]\nnvim = \"neovim\"\n")

	_, err := e.execute(t, "build", "--format", "json")
	require.NoError(t, err)

	t.Run("info", func(t *testing.T) {
		out, err := e.execute(t, "info", "--format", "json")
		require.NoError(t, err)

		var pkgs []struct {
			ExecName   string `json:"exec_name"`
			Type       string `json:"type"`
			EntryPoint string `json:"entry_point"`
			Link       string `json:"link"`
		}
		decodeFirst(t, out, &pkgs)
		require.Len(t, pkgs, 2)
		assert.Equal(t, "bat", pkgs[0].ExecName)
		assert.Equal(t, "ok", pkgs[0].Link)
		assert.Equal(t, "nvim", pkgs[1].ExecName)
		assert.Equal(t, "Directory", pkgs[1].Type)
		assert.Equal(t, "bin/nvim", pkgs[1].EntryPoint)
	})

	t.Run("info filters", func(t *testing.T) {
		out, err := e.execute(t, "info", "--bridge", "dirs", "--format", "json")
		require.NoError(t, err)
		var pkgs []map[string]interface{}
		decodeFirst(t, out, &pkgs)
		require.Len(t, pkgs, 1)
		assert.Equal(t, "nvim", pkgs[0]["exec_name"])

		_, err = e.execute(t, "info", "missing", "--format", "json")
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	})

	t.Run("link restores missing links", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(e.layout.Links, "bat")))
		require.NoError(t, os.Symlink("/nowhere", filepath.Join(e.layout.Links, "stale")))

		out, err := e.execute(t, "link", "--format", "json")
		require.NoError(t, err)

		var msg map[string]string
		decodeFirst(t, out, &msg)
		assert.Equal(t, "Linked 2 packages, pruned 1 stale links", msg["message"])
		testutil.AssertSymlink(t, filepath.Join(e.layout.Links, "bat"), filepath.Join(e.layout.Target, "pkga", "bat"))
		testutil.AssertNoEntry(t, filepath.Join(e.layout.Links, "stale"))
	})

	t.Run("remove", func(t *testing.T) {
		out, err := e.execute(t, "remove", "nvim", "--format", "json")
		require.NoError(t, err)

		var report reportJSON
		decodeFirst(t, out, &report)
		require.Len(t, report.Results, 1)
		assert.Equal(t, "removed", report.Results[0].Status)
		testutil.AssertNoEntry(t, filepath.Join(e.layout.Links, "nvim"))
		testutil.AssertNoEntry(t, filepath.Join(e.layout.Target, "dirs", "nvim"))
	})

	t.Run("remove unknown", func(t *testing.T) {
		out, err := e.execute(t, "remove", "nvim", "--format", "json")
		require.ErrorIs(t, err, bridgepm.ErrPackagesFailed)

		var report reportJSON
		decodeFirst(t, out, &report)
		require.Len(t, report.Results, 1)
		assert.Equal(t, "failed", report.Results[0].Status)
		assert.Equal(t, string(errors.ErrNotFound), report.Results[0].Code)
	})

	t.Run("remove needs a name", func(t *testing.T) {
		_, err := e.execute(t, "remove")
		require.Error(t, err)
	})
}

func TestUpdateWithoutInputsUsesRecordedPackages(t *testing.T) {
	e := newCLIEnv(t)
	testutil.WriteBridge(t, e.layout.Bridges, "pkga", testutil.SingleFileBridge)
	e.layout.WriteInput(t, "cli.toml", "[pkga]\nbat = \"bat\"\n")

	_, err := e.execute(t, "build", "--format", "json")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(e.layout.Inputs))

	out, err := e.execute(t, "update", "--format", "json")
	require.NoError(t, err)

	var report reportJSON
	decodeFirst(t, out, &report)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "updated", report.Results[0].Status)
	assert.Equal(t, []string{"install bat", "update bat"}, testutil.Calls(t, e.layout.Bridges, "pkga"))
}

func TestBridgesLists(t *testing.T) {
	e := newCLIEnv(t)
	testutil.WriteBridge(t, e.layout.Bridges, "pkga", testutil.SingleFileBridge)
	require.NoError(t, os.MkdirAll(filepath.Join(e.layout.Bridges, "empty"), 0755))

	out, err := e.execute(t, "bridges", "--format", "json")
	require.NoError(t, err)

	var entries []struct {
		Name       string `json:"name"`
		Executable string `json:"executable"`
		Error      string `json:"error"`
	}
	decodeFirst(t, out, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "empty", entries[0].Name)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, "pkga", entries[1].Name)
	assert.Equal(t, filepath.Join(e.layout.Bridges, "pkga", "run"), entries[1].Executable)
	assert.Empty(t, entries[1].Error)
}

func TestConfigPrintsEffectiveValues(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.execute(t, "config", "--workers", "7", "--timeout", "90s")
	require.NoError(t, err)

	var doc map[string]map[string]interface{}
	require.NoError(t, toml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, e.layout.Links, doc["paths"]["links"])
	assert.Equal(t, "1m30s", doc["bridge"]["timeout"])
	assert.EqualValues(t, 7, doc["engine"]["workers"])
	assert.Equal(t, "auto", doc["output"]["format"])

	out, err = e.execute(t, "config", "--defaults")
	require.NoError(t, err)
	assert.Contains(t, out, `timeout = "10m"`)
}

func TestConfigRejectsInvalidFlags(t *testing.T) {
	newCLIEnv(t)
	cmd := bridgepm.NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "--workers", "0"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestCleanRemovesLogsAndCache(t *testing.T) {
	e := newCLIEnv(t)
	logDir := filepath.Join(e.state, "logs")
	require.NoError(t, os.MkdirAll(logDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "pkga.log"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(e.cache, 0755))

	out, err := e.execute(t, "clean", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed "+logDir)
	assert.Contains(t, out, "Removed "+e.cache)
	testutil.AssertNoEntry(t, logDir)
	testutil.AssertNoEntry(t, e.cache)

	out, err = e.execute(t, "clean", "--format", "text")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to clean\n", out)
}

func TestDocsAndVersion(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.execute(t, "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "bridges")
	assert.Contains(t, out, "inputs")
	assert.Contains(t, out, "configuration")

	out, err = e.execute(t, "docs", "bridges")
	require.NoError(t, err)
	assert.Contains(t, out, "__IMPL_DEFAULT")

	_, err = e.execute(t, "docs", "nope")
	require.Error(t, err)

	out, err = e.execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "bridgepm "))
}

func TestCompletionScripts(t *testing.T) {
	e := newCLIEnv(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := e.execute(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "bridgepm")
		})
	}

	_, err := e.execute(t, "completion", "tcsh")
	require.Error(t, err)
}
