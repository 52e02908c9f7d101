package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gosas.toml", `
loop_cap = 5000

[[libraries]]
ref = "sales"
path = "/data/sales"
access = "readonly"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LoopCap != 5000 {
		t.Fatalf("loop_cap = %d", cfg.LoopCap)
	}
	if len(cfg.Libraries) != 1 || cfg.Libraries[0].Ref != "sales" || cfg.Libraries[0].Access != "readonly" {
		t.Fatalf("libraries = %#v", cfg.Libraries)
	}
}

func TestLoadManifestYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "libraries.yaml", `
libraries:
  - ref: hist
    path: /data/hist
  - ref: ref
    path: /data/ref
    access: readonly
`)
	libs, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if len(libs) != 2 || libs[0].Ref != "hist" || libs[1].Access != "readonly" {
		t.Fatalf("libs = %#v", libs)
	}
}

func TestDiscoverMergesBothFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "gosas.toml", `
loop_cap = 100

[[libraries]]
ref = "a"
path = "/a"
`)
	writeFile(t, dir, "libraries.yaml", `
libraries:
  - ref: b
    path: /b
`)
	cfg, err := Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg.LoopCap != 100 || len(cfg.Libraries) != 2 {
		t.Fatalf("cfg = %#v", cfg)
	}
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if cfg.LoopCap != 0 || len(cfg.Libraries) != 0 {
		t.Fatalf("cfg = %#v", cfg)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gosas.toml", "loop_cap = [broken")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
