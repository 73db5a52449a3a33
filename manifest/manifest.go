// Package manifest handles talc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a talc.toml project configuration.
type Manifest struct {
	Template Template    `toml:"template"`
	Cache    CacheConfig `toml:"cache"`
	I18n     I18nConfig  `toml:"i18n"`

	// Dir is the directory containing the talc.toml file (set at load time).
	Dir string `toml:"-"`
}

// Template configures template locations and compilation.
type Template struct {
	Dirs            []string `toml:"dirs"`
	DefaultEncoding string   `toml:"default-encoding"`
	Debug           bool     `toml:"debug"`
}

// CacheConfig configures the compiled-program cache.
type CacheConfig struct {
	Path string `toml:"path"`
}

// I18nConfig configures translation catalogs.
type I18nConfig struct {
	Catalog string `toml:"catalog"`
	Domain  string `toml:"domain"`
}

// Load parses a talc.toml file from the given directory. Environment
// variables TALC_DEBUG and TALC_CACHE override the file's settings.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "talc.toml")
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
	if len(m.Template.Dirs) == 0 {
		m.Template.Dirs = []string{"templates"}
	}
	if m.Template.DefaultEncoding == "" {
		m.Template.DefaultEncoding = "utf-8"
	}

	if os.Getenv("TALC_DEBUG") != "" {
		m.Template.Debug = true
	}
	if p := os.Getenv("TALC_CACHE"); p != "" {
		m.Cache.Path = p
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a talc.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "talc.toml")
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

// TemplateDirPaths returns absolute paths for the configured template
// directories.
func (m *Manifest) TemplateDirPaths() []string {
	var paths []string
	for _, d := range m.Template.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// CachePath returns the absolute path of the program cache database, or ""
// when caching is not configured.
func (m *Manifest) CachePath() string {
	if m.Cache.Path == "" {
		return ""
	}
	if filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// CatalogPath returns the absolute path of the translation catalog, or ""
// when none is configured.
func (m *Manifest) CatalogPath() string {
	if m.I18n.Catalog == "" {
		return ""
	}
	if filepath.IsAbs(m.I18n.Catalog) {
		return m.I18n.Catalog
	}
	return filepath.Join(m.Dir, m.I18n.Catalog)
}
