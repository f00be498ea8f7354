package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/henriquecbuss/lintwatch/internal/clierr"
)

func TestInitAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	created, err := Init(dir)
	if err != nil {
		t.Fatal(err)
	}
	if created.Manifest != DefaultManifest {
		t.Errorf("expected default manifest %q, got %q", DefaultManifest, created.Manifest)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Version != CurrentVersion {
		t.Errorf("expected version %d, got %d", CurrentVersion, loaded.Version)
	}
	if len(loaded.Command) == 0 || loaded.Command[0] != DefaultCommand[0] {
		t.Errorf("expected default command, got %v", loaded.Command)
	}
}

func TestInitRefusesExistingConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatal(err)
	}

	_, err := Init(dir)
	var ce *clierr.Error
	if !errors.As(err, &ce) || ce.Code != clierr.ConfigExists {
		t.Errorf("expected CONFIG_ALREADY_EXISTS, got %v", err)
	}
}

func TestLoadMissingConfigReturnsNotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	content := "version: 99\nmanifest: elm.json\nsource_dirs: [src]\ncommand: [elm-review]\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for unsupported version, got %v", err)
	}
}

func TestLoadWrapsParseFailureAsInvalid(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("\tversion: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for unparseable YAML, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"missing manifest", func(c *Config) { c.Manifest = "" }, true},
		{"no source dirs", func(c *Config) { c.SourceDirs = nil }, true},
		{"duplicate source dirs", func(c *Config) { c.SourceDirs = []string{"src", "src"} }, true},
		{"extension without dot", func(c *Config) { c.Extensions = []string{"elm"} }, true},
		{"missing command", func(c *Config) { c.Command = nil }, true},
		{"bad debounce", func(c *Config) { c.Debounce = "soon" }, true},
		{"bad report", func(c *Config) { c.Report = "xml" }, true},
		{"empty report ok", func(c *Config) { c.Report = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSourcePatterns(t *testing.T) {
	cfg := NewDefault()
	cfg.Extensions = []string{".elm", ".mjs"}

	got := cfg.SourcePatterns()
	want := []string{"**/*.elm", "**/*.mjs"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pattern %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDebounceDuration(t *testing.T) {
	cfg := NewDefault()
	cfg.Debounce = "150ms"
	if got := cfg.DebounceDuration(); got != 150*time.Millisecond {
		t.Errorf("got %v, want 150ms", got)
	}

	cfg.Debounce = ""
	if got := cfg.DebounceDuration(); got != 0 {
		t.Errorf("empty debounce should yield 0, got %v", got)
	}
}

func TestOptionalPathsRequirePresenceOnDisk(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefault()
	cfg.SetDir(dir)

	if got := cfg.ReviewPath(); got != "" {
		t.Errorf("absent review dir should disable the watch, got %q", got)
	}

	if err := os.MkdirAll(filepath.Join(dir, cfg.ReviewDir), 0750); err != nil {
		t.Fatal(err)
	}
	if got := cfg.ReviewPath(); got == "" {
		t.Error("existing review dir should be returned")
	}
}

func TestFindDir(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, DefaultManifest), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := FindDir(nested)
	if err != nil {
		t.Fatal(err)
	}
	resolvedRoot, _ := filepath.EvalSymlinks(root)
	resolvedGot, _ := filepath.EvalSymlinks(got)
	if resolvedGot != resolvedRoot {
		t.Errorf("expected project root %q, got %q", resolvedRoot, resolvedGot)
	}
}

func TestFindDirFailsOutsideProject(t *testing.T) {
	_, err := FindDir(t.TempDir())
	var ce *clierr.Error
	if !errors.As(err, &ce) || ce.Code != clierr.ProjectNotFound {
		t.Errorf("expected PROJECT_NOT_FOUND, got %v", err)
	}
}
