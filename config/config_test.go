package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCityPresets_MissingDirFallsBack(t *testing.T) {
	cities, err := LoadCityPresets(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cities) != 1 {
		t.Fatalf("expected 1 default preset, got %d", len(cities))
	}
	if cities["miami"].Slug != "miami" {
		t.Fatalf("expected miami preset, got %+v", cities["miami"])
	}
}

func TestLoadCityPresets_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	data := []byte("name: Lisbon\nslug: lisbon\ncountry: PT\ntimezone: Europe/Lisbon\nlat: 38.72\nlng: -9.14\n")
	if err := os.WriteFile(filepath.Join(dir, "lisbon.yaml"), data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	cities, err := LoadCityPresets(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cities) != 1 {
		t.Fatalf("expected 1 preset, got %d", len(cities))
	}
	lisbon, ok := cities["lisbon"]
	if !ok {
		t.Fatalf("expected preset keyed by slug, got %v", PresetKeys(cities))
	}
	if lisbon.Lat != 38.72 || lisbon.Timezone != "Europe/Lisbon" {
		t.Fatalf("unexpected preset %+v", lisbon)
	}
}

func TestLoadCityPresets_RequiresSlug(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: Nowhere\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCityPresets(dir); err == nil {
		t.Fatal("expected error for preset without slug")
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("GATE_DEV_HOSTS", " Dev.Example.com, ,localhost ")
	got := getEnvList("GATE_DEV_HOSTS", DefaultDevHosts)
	if len(got) != 2 || got[0] != "dev.example.com" || got[1] != "localhost" {
		t.Fatalf("unexpected list %v", got)
	}

	t.Setenv("GATE_DEV_HOSTS", "")
	got = getEnvList("GATE_DEV_HOSTS", DefaultDevHosts)
	if len(got) != 3 {
		t.Fatalf("expected defaults, got %v", got)
	}
}
