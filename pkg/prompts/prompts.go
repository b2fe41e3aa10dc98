// Package prompts loads the MCP prompts offered alongside the platform's
// tools from a directory of text and markdown files.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Prompt is one loaded prompt.
type Prompt struct {
	Name        string
	Description string
	Content     string
}

// Manager holds the prompts read from a directory.
type Manager struct {
	dir     string
	prompts map[string]Prompt
}

// Config configures prompt loading.
type Config struct {
	Dir string
}

// NewManager creates a prompt manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		dir:     cfg.Dir,
		prompts: make(map[string]Prompt),
	}
}

// Load reads every .txt and .md file in the directory. The file name
// without extension is the prompt name. A missing directory is not an
// error.
func (m *Manager) Load() error {
	if m.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading prompts directory: %w", err)
	}

	for _, entry := range entries {
		if err := m.loadFile(entry); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) loadFile(entry os.DirEntry) error {
	name := entry.Name()
	if entry.IsDir() || !isPromptFile(name) {
		return nil
	}

	// #nosec G304 -- path is constructed from directory listing, not user input
	content, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		return fmt.Errorf("reading prompt %s: %w", name, err)
	}

	key := strings.TrimSuffix(name, filepath.Ext(name))
	m.Set(key, string(content))
	return nil
}

// isPromptFile checks if a filename is a valid prompt file.
func isPromptFile(name string) bool {
	if strings.ContainsAny(name, "/\\") || name == ".." {
		return false
	}
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".md")
}

// Set adds or replaces a prompt. The first non-empty line, stripped of
// markdown heading marks, is its description.
func (m *Manager) Set(name, content string) {
	m.prompts[name] = Prompt{
		Name:        name,
		Description: describe(content),
		Content:     content,
	}
}

func describe(content string) string {
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line != "" {
			return line
		}
	}
	return ""
}

// Get retrieves a prompt by name.
func (m *Manager) Get(name string) (Prompt, bool) {
	p, ok := m.prompts[name]
	return p, ok
}

// All returns the prompts sorted by name.
func (m *Manager) All() []Prompt {
	out := make([]Prompt, 0, len(m.prompts))
	for _, p := range m.prompts {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Prompt) int { return strings.Compare(a.Name, b.Name) })
	return out
}
