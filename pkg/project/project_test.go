package project

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"isoforge/pkg/catalog"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.json")
	p := Default()
	p.Name = "demo"
	p.Version = "3.1"
	if err := p.Catalog.Add("zz_last", "pkg-z"); err != nil {
		t.Fatal(err)
	}

	if err := Save(path, p.Document()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fresh := Default()
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	fresh.Apply(doc)

	if fresh.Name != "demo" || fresh.Version != "3.1" {
		t.Errorf("Expected demo 3.1, got %s %s", fresh.Name, fresh.Version)
	}
	if !fresh.Catalog.Equal(p.Catalog) {
		t.Errorf("Expected identical catalog after round trip")
	}
	if !slices.Equal(fresh.Catalog.Flatten(), p.Catalog.Flatten()) {
		t.Errorf("Expected identical flatten after round trip")
	}
	if !slices.Equal(fresh.Catalog.Categories(), p.Catalog.Categories()) {
		t.Errorf("Expected category order %v, got %v", p.Catalog.Categories(), fresh.Catalog.Categories())
	}
}

func TestSaveWritesFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	cat := catalog.New()
	cat.Add("tools", "a")
	if err := Save(path, &Document{ProjectName: "x", Version: "1", Packages: cat}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	for _, key := range []string{`"project_name": "x"`, `"version": "1"`, `"packages": {`, `"tools": [`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("Expected %s in %s", key, data)
		}
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"garbage.json": "{not json",
		"empty.json":   "   ",
		"shape.json":   `{"packages": ["a", "b"]}`,
		"inner.json":   `{"packages": {"tools": "a"}}`,
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte(content), 0644)
		if _, err := Load(path); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestFailedLoadLeavesStateUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{"project_name": "other", "packages": 7}`), 0644)

	p := Default()
	before := p.Catalog.Clone()
	if doc, err := Load(path); err == nil {
		p.Apply(doc)
		t.Fatal("Expected load to fail")
	}
	if p.Name != DefaultName || !p.Catalog.Equal(before) {
		t.Errorf("Expected project to keep its state")
	}
}

func TestApplyKeepsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	os.WriteFile(path, []byte(`{"project_name": "legacy", "packages": {"base": ["linux"]}}`), 0644)

	p := Default()
	doc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	p.Apply(doc)
	if p.Version != DefaultVersion {
		t.Errorf("Expected version to stay %s, got %s", DefaultVersion, p.Version)
	}
	if p.Name != "legacy" || p.Catalog.Len() != 1 {
		t.Errorf("Unexpected project %+v", p)
	}

	p = Default()
	p.Apply(&Document{Version: "9"})
	if p.Catalog.Len() != catalog.Default().Len() {
		t.Errorf("Expected catalog to stay when packages are absent")
	}
}

func TestSaveUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	os.WriteFile(blocker, nil, 0644)

	err := Save(filepath.Join(blocker, "p.json"), Default().Document())
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("Expected WriteError, got %v", err)
	}
	if werr.Path != filepath.Join(blocker, "p.json") {
		t.Errorf("Unexpected path %s", werr.Path)
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	Save(path, &Document{ProjectName: "one", Packages: catalog.New()})
	Save(path, &Document{ProjectName: "two", Packages: catalog.New()}, WithIndent(""), WithFileMode(0600))

	doc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ProjectName != "two" {
		t.Errorf("Expected second save to win, got %s", doc.ProjectName)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}
}
