package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// Tree writes snapshot documents under a root directory.
type Tree struct {
	Root string
	t    testing.TB
}

// NewTree returns a Tree rooted at a fresh temp dir.
func NewTree(t testing.TB) *Tree {
	t.Helper()
	return &Tree{Root: t.TempDir(), t: t}
}

// Dir creates (if needed) and returns the path of a subdirectory.
func (tr *Tree) Dir(parts ...string) string {
	tr.t.Helper()
	dir := filepath.Join(append([]string{tr.Root}, parts...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		tr.t.Fatalf("testutil: mkdir %s: %v", dir, err)
	}
	return dir
}

// WriteRaw writes raw bytes to rel, creating parent dirs.
func (tr *Tree) WriteRaw(rel string, data []byte) string {
	tr.t.Helper()
	path := filepath.Join(tr.Root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tr.t.Fatalf("testutil: mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tr.t.Fatalf("testutil: write %s: %v", path, err)
	}
	return path
}

// WriteJSON marshals v with two-space indentation and writes it to rel.
func (tr *Tree) WriteJSON(rel string, v any) string {
	tr.t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		tr.t.Fatalf("testutil: marshal %s: %v", rel, err)
	}
	return tr.WriteRaw(rel, append(data, '\n'))
}

// VM returns a minimal exported VM document.
func VM(id, size string) map[string]any {
	return map[string]any{
		"id":       id,
		"name":     filepath.Base(id),
		"location": "westeurope",
		"hardwareProfile": map[string]any{
			"vmSize": size,
		},
	}
}

// VMScenario lays out the baseline {vm1, vm2} / current {vm2, vm3} pair where vm2
// is resized. It returns the baseline and current roots.
func VMScenario(t testing.TB) (string, string) {
	t.Helper()
	base := NewTree(t)
	base.WriteJSON("vms/vm1.json", VM("vm1", "Standard_D2s_v3"))
	base.WriteJSON("vms/vm2.json", VM("vm2", "Standard_D2s_v3"))

	cur := NewTree(t)
	cur.WriteJSON("vms/vm2.json", VM("vm2", "Standard_D4s_v3"))
	cur.WriteJSON("vms/vm3.json", VM("vm3", "Standard_D2s_v3"))
	return base.Root, cur.Root
}

// GoldenDir returns the absolute path to the testdata/golden directory.
func GoldenDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "testdata", "golden")
}
