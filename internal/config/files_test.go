package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveInputsExpandsGlobs(t *testing.T) {
	root := t.TempDir()
	cellDir := filepath.Join(root, "cell2")
	if err := os.MkdirAll(cellDir, 0o755); err != nil {
		t.Fatalf("mkdir cell2: %v", err)
	}

	plc1 := filepath.Join(root, "plc1.ir.json")
	plc2 := filepath.Join(cellDir, "plc2.ir.json")
	readme := filepath.Join(root, "README.md")
	for _, f := range []string{plc1, plc2} {
		if err := os.WriteFile(f, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	if err := os.WriteFile(readme, []byte("docs"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	cfg := Config{
		Inputs: InputsConfig{
			Controllers: []string{"*.ir.json", "**/*.ir.json"},
		},
	}

	files, err := cfg.ResolveInputs(root)
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	if !containsPath(files, plc1) {
		t.Fatalf("expected inputs to include %s, got %v", plc1, files)
	}
	if !containsPath(files, plc2) {
		t.Fatalf("expected inputs to include %s, got %v", plc2, files)
	}
	for _, f := range files {
		if filepath.Base(f) == "README.md" {
			t.Fatalf("non-JSON file leaked into inputs: %v", files)
		}
	}
}

func TestResolveInputsHonorsExclude(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "keep.ir.json")
	drop := filepath.Join(root, "drop.ir.json")
	for _, f := range []string{keep, drop} {
		if err := os.WriteFile(f, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}

	cfg := Config{
		Inputs: InputsConfig{
			Controllers: []string{"*.ir.json"},
			Exclude:     []string{"drop.ir.json"},
		},
	}

	files, err := cfg.ResolveInputs(root)
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	if !containsPath(files, keep) {
		t.Fatalf("expected inputs to include %s, got %v", keep, files)
	}
	if containsPath(files, drop) {
		t.Fatalf("excluded file survived: %v", files)
	}
}

func TestResolveInputsDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"zeta.ir.json", "alpha.ir.json", "mid.ir.json"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cfg := Config{Inputs: InputsConfig{Controllers: []string{"*.ir.json"}}}

	first, err := cfg.ResolveInputs(root)
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 inputs, got %v", first)
	}
	if filepath.Base(first[0]) != "alpha.ir.json" {
		t.Fatalf("expected sorted order, got %v", first)
	}

	second, err := cfg.ResolveInputs(root)
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("resolution not deterministic: %v vs %v", first, second)
		}
	}
}

func TestResolveOverlays(t *testing.T) {
	root := t.TempDir()
	overlay := filepath.Join(root, "plant.overlay.json")
	if err := os.WriteFile(overlay, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	cfg := Config{Overlays: []string{"*.overlay.json"}}

	files, err := cfg.ResolveOverlays(root)
	if err != nil {
		t.Fatalf("ResolveOverlays: %v", err)
	}
	if len(files) != 1 || !containsPath(files, overlay) {
		t.Fatalf("expected [%s], got %v", overlay, files)
	}
}

func containsPath(files []string, target string) bool {
	for _, f := range files {
		if filepath.Clean(f) == filepath.Clean(target) {
			return true
		}
	}
	return false
}
