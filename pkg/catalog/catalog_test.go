package catalog

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
)

func fromPairs(t *testing.T, pairs ...[2]string) *Catalog {
	t.Helper()
	c := New()
	for _, p := range pairs {
		if err := c.Add(p[0], p[1]); err != nil {
			t.Fatalf("Add(%s, %s) failed: %v", p[0], p[1], err)
		}
	}
	return c
}

func TestAddRemoveExample(t *testing.T) {
	c := fromPairs(t, [2]string{"tools", "a"}, [2]string{"tools", "b"})

	if err := c.Add("tools", "c"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := c.Flatten(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Expected [a b c], got %v", got)
	}

	removed, err := c.Remove("b")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !slices.Equal(removed, []string{"tools"}) {
		t.Errorf("Expected removal from [tools], got %v", removed)
	}
	if got := c.Flatten(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Expected [a c], got %v", got)
	}

	_, err = c.Remove("z")
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("Expected ErrPackageNotFound, got %v", err)
	}
	if got := c.Flatten(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Expected catalog unchanged after failed remove, got %v", got)
	}
}

func TestAddDuplicateIsNoop(t *testing.T) {
	c := fromPairs(t, [2]string{"tools", "a"})
	err := c.Add("tools", "a")
	if !errors.Is(err, ErrPackageExists) {
		t.Fatalf("Expected ErrPackageExists, got %v", err)
	}
	if got := c.Flatten(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Expected [a], got %v", got)
	}

	// Same package in another category is allowed.
	if err := c.Add("other", "a"); err != nil {
		t.Errorf("Expected cross-category duplicate to be accepted, got %v", err)
	}
}

func TestAddCreatesCategoryAtEnd(t *testing.T) {
	c := Default()
	if err := c.Add("forensics", "sleuthkit"); err != nil {
		t.Fatal(err)
	}
	cats := c.Categories()
	if cats[len(cats)-1] != "forensics" {
		t.Errorf("Expected new category last, got %v", cats)
	}
	flat := c.Flatten()
	if flat[len(flat)-1] != "sleuthkit" {
		t.Errorf("Expected sleuthkit last, got %s", flat[len(flat)-1])
	}
}

func TestRemoveFromEveryCategory(t *testing.T) {
	c := fromPairs(t,
		[2]string{"one", "x"}, [2]string{"one", "y"},
		[2]string{"two", "x"}, [2]string{"two", "z"},
	)
	removed, err := c.Remove("x")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(removed, []string{"one", "two"}) {
		t.Errorf("Expected removal from [one two], got %v", removed)
	}
	if got := c.Flatten(); !slices.Equal(got, []string{"y", "z"}) {
		t.Errorf("Expected [y z], got %v", got)
	}
	// Emptied categories stay in place.
	c2 := fromPairs(t, [2]string{"solo", "p"})
	if _, err := c2.Remove("p"); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(c2.Categories(), []string{"solo"}) {
		t.Errorf("Expected empty category to remain, got %v", c2.Categories())
	}
}

func TestReplayMatchesDirectConstruction(t *testing.T) {
	type op struct {
		remove   bool
		category string
		pkg      string
	}
	ops := []op{
		{category: "net", pkg: "samba"},
		{category: "disk", pkg: "gparted"},
		{category: "net", pkg: "vsftpd"},
		{category: "net", pkg: "samba"},
		{remove: true, pkg: "gparted"},
		{category: "disk", pkg: "grub"},
		{remove: true, pkg: "missing"},
		{category: "net", pkg: "nfs-utils"},
		{remove: true, pkg: "vsftpd"},
	}

	replayed := New()
	for _, o := range ops {
		if o.remove {
			replayed.Remove(o.pkg)
		} else {
			replayed.Add(o.category, o.pkg)
		}
	}

	direct := fromPairs(t,
		[2]string{"net", "samba"}, [2]string{"net", "nfs-utils"},
		[2]string{"disk", "grub"},
	)

	if !slices.Equal(replayed.Flatten(), direct.Flatten()) {
		t.Errorf("Expected %v, got %v", direct.Flatten(), replayed.Flatten())
	}
	if !replayed.Equal(direct) {
		t.Errorf("Expected catalogs to be equal")
	}
}

func TestOrderWithinAndAcrossCategories(t *testing.T) {
	// Within one category, insertion order decides the output.
	ab := fromPairs(t, [2]string{"c", "a"}, [2]string{"c", "b"})
	ba := fromPairs(t, [2]string{"c", "b"}, [2]string{"c", "a"})
	if slices.Equal(ab.Flatten(), ba.Flatten()) {
		t.Errorf("Expected within-category order to matter")
	}

	// Across categories, the category that was created first comes first,
	// regardless of when its later packages were added.
	x := fromPairs(t, [2]string{"one", "a"}, [2]string{"two", "b"}, [2]string{"one", "c"})
	y := fromPairs(t, [2]string{"two", "b"}, [2]string{"one", "a"}, [2]string{"one", "c"})
	if !slices.Equal(x.Flatten(), []string{"a", "c", "b"}) {
		t.Errorf("Expected [a c b], got %v", x.Flatten())
	}
	if !slices.Equal(y.Flatten(), []string{"b", "a", "c"}) {
		t.Errorf("Expected [b a c], got %v", y.Flatten())
	}
}

func TestRenderText(t *testing.T) {
	c := fromPairs(t,
		[2]string{"imaging_tools", "ddrescue"},
		[2]string{"imaging_tools", "testdisk"},
		[2]string{"gui_kde", "sddm"},
	)
	expected := "\n# Imaging Tools\nddrescue\ntestdisk\n\n# Gui Kde\nsddm\n"
	got := c.RenderText()
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
	if again := c.RenderText(); again != got {
		t.Errorf("Expected RenderText to be stable")
	}
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"imaging_tools":     "Imaging Tools",
		"editors_utilities": "Editors Utilities",
		"development":       "Development",
		"gui_kde":           "Gui Kde",
	}
	for in, want := range tests {
		if got := Title(in); got != want {
			t.Errorf("Title(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestJSONKeepsOrder(t *testing.T) {
	c := Default()
	c.Add("zzz_first_alphabetically_last", "pkg")
	c.Add("aaa", "pkg2")

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), `{"imaging_tools":["ddrescue"`) {
		t.Errorf("Expected document to start with imaging_tools, got %s", data[:40])
	}

	var decoded Catalog
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(c) {
		t.Errorf("Expected round trip to keep the catalog, got %v", decoded.Categories())
	}
}

func TestJSONRejectsWrongShape(t *testing.T) {
	inputs := []string{
		`["a","b"]`,
		`{"tools": "a"}`,
		`{"tools": [1, 2]}`,
	}
	for _, in := range inputs {
		var c Catalog
		if err := json.Unmarshal([]byte(in), &c); err == nil {
			t.Errorf("Expected error for %s", in)
		}
	}
}

func TestJSONEmptyCategory(t *testing.T) {
	c := New()
	c.Add("solo", "p")
	c.Remove("p")
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"solo":[]}` {
		t.Errorf("Expected {\"solo\":[]}, got %s", data)
	}
}

func TestDefaultIsFresh(t *testing.T) {
	a := Default()
	a.Remove("grub")
	b := Default()
	if !slices.Contains(b.Packages("disk_tools"), "grub") {
		t.Errorf("Expected Default to return an independent copy")
	}
}
