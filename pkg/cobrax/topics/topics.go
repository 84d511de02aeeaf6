// Package topics serves long-form guides that ship inside the binary. A
// guide is a markdown or text file; its name is the file name without the
// extension.
package topics

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Topic is one guide.
type Topic struct {
	Name    string
	Ext     string
	Content string
}

// Options configures a Manager.
type Options struct {
	// Extensions lists the file extensions treated as topics.
	// Defaults to [".txt", ".md"].
	Extensions []string
	// Renderer formats topic content. Defaults to PlainRenderer.
	Renderer Renderer
}

// Manager indexes the topics found in a file system.
type Manager struct {
	topics     map[string]*Topic
	extensions []string
	renderer   Renderer
}

// New scans fsys (typically an embed.FS) for topics.
func New(fsys fs.FS, opts Options) (*Manager, error) {
	m := &Manager{
		topics:     map[string]*Topic{},
		extensions: opts.Extensions,
		renderer:   opts.Renderer,
	}
	if len(m.extensions) == 0 {
		m.extensions = []string{".txt", ".md"}
	}
	if m.renderer == nil {
		m.renderer = &PlainRenderer{}
	}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if !m.supported(ext) {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(path.Base(p), ext)
		m.topics[name] = &Topic{Name: name, Ext: ext, Content: string(data)}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan topics: %w", err)
	}
	return m, nil
}

func (m *Manager) supported(ext string) bool {
	for _, e := range m.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Names returns the topic names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the topic called name.
func (m *Manager) Get(name string) (*Topic, bool) {
	t, ok := m.topics[name]
	return t, ok
}

// Render returns the formatted content of the topic called name.
func (m *Manager) Render(name string) (string, bool) {
	t, ok := m.topics[name]
	if !ok {
		return "", false
	}
	return m.renderer.Render(t.Content, t.Ext), true
}
