package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "talc.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[template]
dirs = ["pages", "layouts"]
default-encoding = "latin-1"
debug = true

[cache]
path = ".talc/programs.db"

[i18n]
catalog = "locale/messages.yaml"
domain = "site"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(m.Template.Dirs) != 2 || m.Template.Dirs[0] != "pages" {
		t.Errorf("dirs = %v, want [pages layouts]", m.Template.Dirs)
	}
	if m.Template.DefaultEncoding != "latin-1" {
		t.Errorf("encoding = %q, want latin-1", m.Template.DefaultEncoding)
	}
	if !m.Template.Debug {
		t.Error("debug = false, want true")
	}
	if m.I18n.Domain != "site" {
		t.Errorf("domain = %q, want site", m.I18n.Domain)
	}

	want := filepath.Join(m.Dir, ".talc", "programs.db")
	if m.CachePath() != want {
		t.Errorf("cache path = %q, want %q", m.CachePath(), want)
	}
	if m.CatalogPath() != filepath.Join(m.Dir, "locale", "messages.yaml") {
		t.Errorf("catalog path = %q", m.CatalogPath())
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.Template.Dirs) != 1 || m.Template.Dirs[0] != "templates" {
		t.Errorf("dirs = %v, want [templates]", m.Template.Dirs)
	}
	if m.Template.DefaultEncoding != "utf-8" {
		t.Errorf("encoding = %q, want utf-8", m.Template.DefaultEncoding)
	}
	if m.CachePath() != "" {
		t.Errorf("cache path = %q, want empty", m.CachePath())
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[template]\ndebug = false\n")

	t.Setenv("TALC_DEBUG", "1")
	t.Setenv("TALC_CACHE", "/tmp/override.db")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !m.Template.Debug {
		t.Error("TALC_DEBUG override ignored")
	}
	if m.CachePath() != "/tmp/override.db" {
		t.Errorf("cache path = %q, want /tmp/override.db", m.CachePath())
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[i18n]\ndomain = \"found\"\n")
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil || m.I18n.Domain != "found" {
		t.Errorf("manifest = %+v, want domain found", m)
	}
}

func TestFindAndLoadMissing(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m != nil {
		t.Errorf("manifest = %+v, want nil", m)
	}
}
