package artifact

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestHeredoc(t *testing.T) {
	got, err := Heredoc(">", "airootfs/etc/motd", "MOTD_EOF", "hello\nworld")
	if err != nil {
		t.Fatal(err)
	}
	expected := "cat > airootfs/etc/motd << 'MOTD_EOF'\nhello\nworld\nMOTD_EOF\n"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestHeredocCollision(t *testing.T) {
	_, err := Heredoc(">>", "packages.x86_64", "PKG_EOF", "a\nPKG_EOF\nb\n")
	if !errors.Is(err, ErrDelimiterCollision) {
		t.Errorf("Expected ErrDelimiterCollision, got %v", err)
	}

	// A delimiter that only appears inside a longer line is harmless.
	if _, err := Heredoc(">", "f", "EOF", "echo EOF\n  EOF\n"); err != nil {
		t.Errorf("Expected no collision, got %v", err)
	}
}

func TestKdeScriptNestsInsideItsDelimiter(t *testing.T) {
	a, ok := NewSet(VariantDesktop).Get("kde_setup")
	if !ok {
		t.Fatal("kde_setup missing from desktop set")
	}
	body := a.Render()
	if !strings.Contains(body, "\nEOF\n") {
		t.Fatal("Expected the KDE script to carry nested EOF heredocs")
	}
	doc, err := a.Heredoc()
	if err != nil {
		t.Fatalf("Heredoc failed: %v", err)
	}
	if !strings.HasSuffix(doc, "\nKDE_EOF\n") {
		t.Errorf("Expected heredoc to end with KDE_EOF, got %q", doc[len(doc)-20:])
	}
}

func TestSetsValidate(t *testing.T) {
	for _, v := range []Variant{VariantDesktop, VariantHeadless} {
		if err := NewSet(v).Validate("PACKAGES_EOF"); err != nil {
			t.Errorf("%s: expected valid set, got %v", v, err)
		}
	}
}

func TestValidateRejectsSharedDelimiter(t *testing.T) {
	s := Set{
		variant: VariantHeadless,
		artifacts: []Artifact{
			{Name: "one", Path: "a/one", Delimiter: "X_EOF", render: func() string { return "1\n" }},
			{Name: "two", Path: "a/two", Delimiter: "X_EOF", render: func() string { return "2\n" }},
		},
	}
	if err := s.Validate(); !errors.Is(err, ErrDelimiterCollision) {
		t.Errorf("Expected ErrDelimiterCollision, got %v", err)
	}

	s = NewSet(VariantHeadless)
	if err := s.Validate("SSH_EOF"); !errors.Is(err, ErrDelimiterCollision) {
		t.Errorf("Expected reserved delimiter to collide, got %v", err)
	}
}

func TestVariantContents(t *testing.T) {
	desktop := NewSet(VariantDesktop)
	headless := NewSet(VariantHeadless)

	if len(desktop.Artifacts()) != 7 {
		t.Errorf("Expected 7 desktop artifacts, got %d", len(desktop.Artifacts()))
	}
	if len(headless.Artifacts()) != 4 {
		t.Errorf("Expected 4 headless artifacts, got %d", len(headless.Artifacts()))
	}
	if _, ok := headless.Get("kde_setup"); ok {
		t.Errorf("Expected headless set to omit kde_setup")
	}
	if len(desktop.Units()) != 2 || len(headless.Units()) != 1 {
		t.Errorf("Expected 2/1 units, got %d/%d", len(desktop.Units()), len(headless.Units()))
	}
}

func TestDirsCoverEveryArtifact(t *testing.T) {
	s := NewSet(VariantDesktop)
	dirs := s.Dirs()
	for _, a := range s.Artifacts() {
		if !slices.Contains(dirs, a.Dir()) {
			t.Errorf("Expected scaffold to contain %s", a.Dir())
		}
	}
	wants := "airootfs/etc/systemd/system/multi-user.target.wants"
	if !slices.Contains(dirs, wants) {
		t.Errorf("Expected scaffold to contain %s, got %v", wants, dirs)
	}
	seen := map[string]bool{}
	for _, d := range dirs {
		if seen[d] {
			t.Errorf("Duplicate directory %s", d)
		}
		seen[d] = true
	}
}

func TestPaths(t *testing.T) {
	a, _ := NewSet(VariantHeadless).Get("systemd_service")
	if a.ImagePath() != "/etc/systemd/system/auto-ssh.service" {
		t.Errorf("Unexpected image path %s", a.ImagePath())
	}
	if a.EnablementLink() != "airootfs/etc/systemd/system/multi-user.target.wants/auto-ssh.service" {
		t.Errorf("Unexpected link %s", a.EnablementLink())
	}
	tools, _ := NewSet(VariantHeadless).Get("imaging_tools")
	if tools.EnablementLink() != "" {
		t.Errorf("Expected no link for a script")
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"", VariantDesktop, false},
		{"KDE", VariantDesktop, false},
		{"headless", VariantHeadless, false},
		{"minimal", VariantHeadless, false},
		{"gnome", VariantDesktop, true},
	}
	for _, tt := range tests {
		got, err := ParseVariant(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseVariant(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestContainerfile(t *testing.T) {
	cf := Containerfile()
	if !strings.HasPrefix(cf, "FROM archlinux:latest") {
		t.Errorf("Unexpected base image line")
	}
	if !strings.Contains(cf, "WORKDIR "+ProfileDir) {
		t.Errorf("Expected Containerfile to switch into %s", ProfileDir)
	}
	if !strings.Contains(cf, "CacheDir = "+PackageCacheDir) {
		t.Errorf("Expected Containerfile to point pacman at %s", PackageCacheDir)
	}
}
