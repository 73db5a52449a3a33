package i18n

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "messages.yaml")
	content := `
domains:
  "":
    greeting: "Hei ${who}!"
  forms:
    submit: "Send inn"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog(writeCatalog(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if text, ok := c.Lookup("submit", "forms"); !ok || text != "Send inn" {
		t.Errorf("lookup = %q, %v", text, ok)
	}
}

func TestLookupFallsBackToDefaultDomain(t *testing.T) {
	c, err := LoadCatalog(writeCatalog(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if text, ok := c.Lookup("greeting", "forms"); !ok || text != "Hei ${who}!" {
		t.Errorf("lookup = %q, %v, want default-domain hit", text, ok)
	}
	if _, ok := c.Lookup("absent", "forms"); ok {
		t.Error("lookup of absent id succeeded")
	}
}

func TestTranslateSubstitutesMapping(t *testing.T) {
	c, err := LoadCatalog(writeCatalog(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tr := c.Translate()
	got := tr("greeting", map[string]string{"who": "Eva"}, "Hello ${who}!", "")
	if got != "Hei Eva!" {
		t.Errorf("got %q, want Hei Eva!", got)
	}
}

func TestTranslateUnknownIdUsesDefault(t *testing.T) {
	c, err := LoadCatalog(writeCatalog(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tr := c.Translate()
	if got := tr("absent", nil, "Fallback", ""); got != "Fallback" {
		t.Errorf("got %q, want Fallback", got)
	}
	if got := tr("absent", nil, "", ""); got != "absent" {
		t.Errorf("got %q, want the id itself", got)
	}
}

func TestFastTranslate(t *testing.T) {
	got := FastTranslate("id", map[string]string{"n": "7"}, "${n} items", "any")
	if got != "7 items" {
		t.Errorf("got %q, want 7 items", got)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
