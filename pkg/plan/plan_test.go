package plan

import (
	"errors"
	"strings"
	"testing"

	"isoforge/pkg/artifact"
	"isoforge/pkg/catalog"
)

func smallCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	for _, p := range [][2]string{{"base", "linux"}, {"base", "mkinitcpio"}, {"tools", "dd"}} {
		if err := cat.Add(p[0], p[1]); err != nil {
			t.Fatal(err)
		}
	}
	return cat
}

func TestCompileIsDeterministic(t *testing.T) {
	c := NewCompiler(artifact.NewSet(artifact.VariantDesktop), "1.0")
	first, err := c.Compile(catalog.Default())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := NewCompiler(artifact.NewSet(artifact.VariantDesktop), "1.0").Compile(catalog.Default())
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("Expected identical plans on run %d", i)
		}
	}
}

func TestCompileStepOrder(t *testing.T) {
	script, err := NewCompiler(artifact.NewSet(artifact.VariantDesktop), "2.5").Compile(smallCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	markers := []string{
		"cd /build/my-imaging-distro",
		"cat >> packages.x86_64 << 'PACKAGES_EOF'",
		"mkdir -p airootfs/usr/local/bin",
		"cat > airootfs/usr/local/bin/setup-ssh.sh << 'SSH_EOF'",
		"chmod +x airootfs/usr/local/bin/setup-ssh.sh",
		"cat > airootfs/usr/local/bin/setup-kde.sh << 'KDE_EOF'",
		"cat > airootfs/usr/local/bin/imaging-tools.sh << 'TOOLS_EOF'",
		"ln -sf /etc/systemd/system/auto-ssh.service",
		"ln -sf /etc/systemd/system/auto-kde.service",
		"airootfs/etc/passwd",
		"chown -R 1000:1000 /home/live",
		"sed -i 's/multi-user.target/graphical.target/' profiledef.sh",
		"mkarchiso -v -w /work -o /output .",
		"echo 'Version: 2.5'",
		"ls -la /output/",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(script, m)
		if idx < 0 {
			t.Fatalf("Expected plan to contain %q", m)
		}
		if idx <= last {
			t.Errorf("Expected %q after previous step", m)
		}
		last = idx
	}
}

func TestCompilePackagesBlock(t *testing.T) {
	script, err := NewCompiler(artifact.NewSet(artifact.VariantHeadless), "").Compile(smallCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	expected := "cat >> packages.x86_64 << 'PACKAGES_EOF'\n\n# Base\nlinux\nmkinitcpio\n\n# Tools\ndd\nPACKAGES_EOF\n"
	if !strings.Contains(script, expected) {
		t.Errorf("Expected packages block %q in plan", expected)
	}
}

func TestCompileReflectsCatalogEdits(t *testing.T) {
	c := NewCompiler(artifact.NewSet(artifact.VariantDesktop), "1.0")
	cat := smallCatalog(t)
	before, _ := c.Compile(cat)

	if err := cat.Add("tools", "ddrescue"); err != nil {
		t.Fatal(err)
	}
	after, _ := c.Compile(cat)
	if before == after {
		t.Fatal("Expected plan to change after catalog edit")
	}
	if !strings.Contains(after, "\ndd\nddrescue\nPACKAGES_EOF\n") {
		t.Errorf("Expected ddrescue appended to tools")
	}
}

func TestCompileHeadless(t *testing.T) {
	script, err := NewCompiler(artifact.NewSet(artifact.VariantHeadless), "").Compile(smallCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, absent := range []string{"KDE_EOF", "graphical.target", "airootfs/etc/passwd", "Version:"} {
		if strings.Contains(script, absent) {
			t.Errorf("Expected headless plan to omit %q", absent)
		}
	}
	if !strings.Contains(script, "auto-ssh.service") {
		t.Errorf("Expected headless plan to enable the SSH unit")
	}
}

func TestCompileDelimiterCollision(t *testing.T) {
	cat := smallCatalog(t)
	if err := cat.Add("tools", PackagesDelimiter); err != nil {
		t.Fatal(err)
	}
	_, err := NewCompiler(artifact.NewSet(artifact.VariantDesktop), "1.0").Compile(cat)
	if !errors.Is(err, artifact.ErrDelimiterCollision) {
		t.Errorf("Expected ErrDelimiterCollision, got %v", err)
	}
}

func TestCompileGuardsRepeatableEdits(t *testing.T) {
	script, err := NewCompiler(artifact.NewSet(artifact.VariantDesktop), "1.0").Compile(smallCatalog(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, guard := range []string{
		"grep -q '^live:' airootfs/etc/passwd 2>/dev/null || echo 'live:x:1000:1000:Live User:/home/live:/bin/bash' >> airootfs/etc/passwd",
		"grep -q 'graphical.target' profiledef.sh || sed -i",
	} {
		if !strings.Contains(script, guard) {
			t.Errorf("Expected guarded edit %q", guard)
		}
	}
}

func TestVersionIsQuoted(t *testing.T) {
	script, err := NewCompiler(artifact.NewSet(artifact.VariantHeadless), "1.0'; rm -rf /").Compile(catalog.New())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, `echo 'Version: 1.0'\''; rm -rf /'`) {
		t.Errorf("Expected version to be single-quoted")
	}
}

func TestSections(t *testing.T) {
	got := NewCompiler(artifact.NewSet(artifact.VariantDesktop), "").Sections()
	expected := []string{"preamble", "packages", "scaffold", "artifacts", "services", "accounts", "boot-target", "mkarchiso", "listing"}
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}
