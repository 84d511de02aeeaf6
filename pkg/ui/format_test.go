// pkg/ui/format_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test output format parsing and detection

package ui_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/bridgepm/pkg/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatString(t *testing.T) {
	tests := []struct {
		format   ui.Format
		expected string
	}{
		{ui.FormatAuto, "auto"},
		{ui.FormatTerminal, "term"},
		{ui.FormatText, "text"},
		{ui.FormatJSON, "json"},
		{ui.Format(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.format.String())
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ui.Format
		wantErr  bool
	}{
		{name: "auto", input: "auto", expected: ui.FormatAuto},
		{name: "empty is auto", input: "", expected: ui.FormatAuto},
		{name: "term", input: "term", expected: ui.FormatTerminal},
		{name: "terminal", input: "terminal", expected: ui.FormatTerminal},
		{name: "text", input: "text", expected: ui.FormatText},
		{name: "plain", input: "plain", expected: ui.FormatText},
		{name: "mixed case json", input: " Json ", expected: ui.FormatJSON},
		{name: "invalid", input: "yaml", expected: ui.FormatAuto, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := ui.ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestDetectFormatNotATerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, ui.FormatText, ui.DetectFormat(f))

	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, ui.FormatText, ui.DetectFormat(f))
}

func TestNewRendererAutoWithoutFile(t *testing.T) {
	r, err := ui.NewRenderer(ui.FormatAuto, &discard{})
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = ui.NewRenderer(ui.Format(42), &discard{})
	assert.Error(t, err)
}

func TestErrorLinePlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, "Error: store is locked", ui.ErrorLine(fmt.Errorf("store is locked")))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
