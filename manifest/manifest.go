// Package manifest handles banana.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a banana.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Run     RunConfig   `toml:"run"`
	Store   StoreConfig `toml:"store"`

	// Dir is the directory containing the banana.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// RunConfig configures how the project's program image is executed.
type RunConfig struct {
	Image string `toml:"image"` // path to the program image, relative to Dir
	Trace bool   `toml:"trace"` // per-instruction trace on stderr
}

// StoreConfig configures the program/run store.
type StoreConfig struct {
	Path string `toml:"path"` // database path, relative to Dir
}

// Load parses a banana.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "banana.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Store.Path == "" {
		m.Store.Path = filepath.Join(".banana", "store.db")
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a banana.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "banana.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks that the manifest names everything a run needs.
func (m *Manifest) Validate() error {
	if m.Project.Name == "" {
		return fmt.Errorf("banana.toml: project.name is required")
	}
	if m.Run.Image == "" {
		return fmt.Errorf("banana.toml: run.image is required")
	}
	return nil
}

// ImagePath returns the absolute path to the configured program image.
func (m *Manifest) ImagePath() string {
	return filepath.Join(m.Dir, m.Run.Image)
}

// StorePath returns the absolute path to the store database.
func (m *Manifest) StorePath() string {
	return filepath.Join(m.Dir, m.Store.Path)
}
