// Package i18n provides translate collaborators for compiled templates:
// the pass-through default and YAML-backed message catalogs.
package i18n

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talc-dev/talc/runtime"
)

// FastTranslate resolves nothing: it returns the default text (or the
// message id) with mapping placeholders substituted. Render calls that
// bind no catalog use it implicitly.
var FastTranslate runtime.TranslateFunc = runtime.DefaultTranslate

// Catalog holds localized messages grouped by translation domain.
type Catalog struct {
	// Domains maps domain name -> message id -> localized text. The ""
	// domain answers lookups with no active domain.
	Domains map[string]map[string]string `yaml:"domains"`
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog %s: %w", path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Domains == nil {
		c.Domains = make(map[string]map[string]string)
	}
	return &c, nil
}

// Lookup returns the localized text for msgid in domain, falling back to
// the "" domain. The second result reports whether a message was found.
func (c *Catalog) Lookup(msgid, domain string) (string, bool) {
	if msgs, ok := c.Domains[domain]; ok {
		if text, ok := msgs[msgid]; ok {
			return text, true
		}
	}
	if domain != "" {
		if msgs, ok := c.Domains[""]; ok {
			if text, ok := msgs[msgid]; ok {
				return text, true
			}
		}
	}
	return "", false
}

// Translate returns a translate collaborator backed by the catalog.
// Unknown ids resolve to the default text, or the id itself.
func (c *Catalog) Translate() runtime.TranslateFunc {
	return func(msgid string, mapping map[string]string, def string, domain string) string {
		if text, ok := c.Lookup(msgid, domain); ok {
			return runtime.Interpolate(text, mapping)
		}
		return runtime.DefaultTranslate(msgid, mapping, def, domain)
	}
}
