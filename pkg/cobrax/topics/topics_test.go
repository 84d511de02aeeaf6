// pkg/cobrax/topics/topics_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: In-memory filesystem (fstest)
// PURPOSE: Test topic discovery and rendering

package topics_test

import (
	"testing"
	"testing/fstest"

	"github.com/arthur-debert/bridgepm/pkg/cobrax/topics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"docs/bridges.md":      {Data: []byte("# Bridges\n\nWriting a bridge.")},
		"docs/inputs.txt":      {Data: []byte("Input files")},
		"docs/notes/layout.md": {Data: []byte("# Layout")},
		"docs/ignored.json":    {Data: []byte("{}")},
		"docs/config.txxt":     {Data: []byte("Config")},
	}
}

func TestNewScansSupportedExtensions(t *testing.T) {
	m, err := topics.New(testFS(), topics.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"bridges", "inputs", "layout"}, m.Names())

	topic, ok := m.Get("inputs")
	require.True(t, ok)
	assert.Equal(t, ".txt", topic.Ext)
	assert.Equal(t, "Input files", topic.Content)

	_, ok = m.Get("ignored")
	assert.False(t, ok)
}

func TestNewCustomExtensions(t *testing.T) {
	m, err := topics.New(testFS(), topics.Options{Extensions: []string{".txxt"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"config"}, m.Names())
}

func TestRenderPlain(t *testing.T) {
	m, err := topics.New(testFS(), topics.Options{})
	require.NoError(t, err)

	out, ok := m.Render("bridges")
	require.True(t, ok)
	assert.Equal(t, "# Bridges\n\nWriting a bridge.", out)

	_, ok = m.Render("missing")
	assert.False(t, ok)
}

func TestGlamourRendererSkipsNonMarkdown(t *testing.T) {
	r := topics.NewGlamourRenderer()
	assert.Equal(t, "plain text", r.Render("plain text", ".txt"))

	out := r.Render("# Title\n\nBody text", ".md")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Body text")
}
