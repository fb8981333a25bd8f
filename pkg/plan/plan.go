// Package plan compiles the catalog and the artifact set into the shell
// script that runs inside the build container. Compilation is pure: the
// same catalog, artifact set and version always produce the same text, and
// nothing is executed here.
package plan

import (
	"fmt"
	"strings"

	"isoforge/pkg/artifact"
	"isoforge/pkg/catalog"
)

// PackagesDelimiter terminates the heredoc that appends the package list.
const PackagesDelimiter = "PACKAGES_EOF"

// Account is a login seeded into the image's account databases before the
// provisioning scripts run.
type Account struct {
	Name  string
	UID   int
	GID   int
	Gecos string
	Home  string
	Shell string
}

// LiveAccount is the desktop auto-login user. setup-kde.sh and the rc.local
// ownership fix both assume it already exists.
var LiveAccount = Account{
	Name:  "live",
	UID:   1000,
	GID:   1000,
	Gecos: "Live User",
	Home:  "/home/live",
	Shell: "/bin/bash",
}

type section struct {
	name   string
	render func(sb *strings.Builder, cat *catalog.Catalog) error
}

// Compiler turns a catalog into a build plan.
// Immutable
type Compiler struct {
	set      artifact.Set
	version  string
	sections []section
}

// NewCompiler creates a compiler for one artifact set. version is echoed at
// the end of the plan and may be empty.
func NewCompiler(set artifact.Set, version string) *Compiler {
	c := &Compiler{set: set, version: version}
	c.sections = []section{
		{"preamble", c.preamble},
		{"packages", c.packages},
		{"scaffold", c.scaffold},
		{"artifacts", c.artifacts},
		{"services", c.services},
		{"accounts", c.accounts},
		{"boot-target", c.bootTarget},
		{"mkarchiso", c.mkarchiso},
		{"listing", c.listing},
	}
	return c
}

// Sections returns the names of the plan sections in emission order.
func (c *Compiler) Sections() []string {
	names := make([]string, 0, len(c.sections))
	for _, s := range c.sections {
		names = append(names, s.name)
	}
	return names
}

// Compile renders the build plan for the current state of cat.
func (c *Compiler) Compile(cat *catalog.Catalog) (string, error) {
	if err := c.set.Validate(PackagesDelimiter); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, s := range c.sections {
		if err := s.render(&sb, cat); err != nil {
			return "", fmt.Errorf("plan section %s: %w", s.name, err)
		}
	}
	return sb.String(), nil
}

func (c *Compiler) preamble(sb *strings.Builder, _ *catalog.Catalog) error {
	sb.WriteString("set -eo pipefail\n")
	fmt.Fprintf(sb, "cd %s\n\n", artifact.ProfileDir)
	sb.WriteString("echo \"=== Configuring archiso ===\"\n\n")
	return nil
}

func (c *Compiler) packages(sb *strings.Builder, cat *catalog.Catalog) error {
	doc, err := artifact.Heredoc(">>", artifact.PackageManifest, PackagesDelimiter, cat.RenderText())
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, "# Append packages to %s\n", artifact.PackageManifest)
	sb.WriteString(doc)
	sb.WriteString("\n")
	return nil
}

func (c *Compiler) scaffold(sb *strings.Builder, _ *catalog.Catalog) error {
	sb.WriteString("echo \"=== Creating required directories ===\"\n")
	for _, d := range c.set.Dirs() {
		fmt.Fprintf(sb, "mkdir -p %s\n", d)
	}
	sb.WriteString("\n")
	return nil
}

func (c *Compiler) artifacts(sb *strings.Builder, _ *catalog.Catalog) error {
	sb.WriteString("echo \"=== Creating scripts ===\"\n\n")
	for _, a := range c.set.Artifacts() {
		doc, err := a.Heredoc()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "# %s\n", a.Name)
		sb.WriteString(doc)
		if a.Executable {
			fmt.Fprintf(sb, "chmod +x %s\n", a.Path)
		}
		sb.WriteString("\n")
	}
	return nil
}

func (c *Compiler) services(sb *strings.Builder, _ *catalog.Catalog) error {
	units := c.set.Units()
	if len(units) == 0 {
		return nil
	}
	sb.WriteString("# Enable services\n")
	for _, u := range units {
		fmt.Fprintf(sb, "ln -sf %s %s\n", u.ImagePath(), u.EnablementLink())
	}
	sb.WriteString("\n")
	return nil
}

// accounts appends the live account to passwd, group and shadow. Each line
// is guarded so that a profile which already has the account is left alone.
func (c *Compiler) accounts(sb *strings.Builder, _ *catalog.Catalog) error {
	if !c.set.Variant().Graphical() {
		return nil
	}
	a := LiveAccount
	etc := artifact.RootFS + "/etc"
	records := []struct{ file, line string }{
		{"passwd", fmt.Sprintf("%s:x:%d:%d:%s:%s:%s", a.Name, a.UID, a.GID, a.Gecos, a.Home, a.Shell)},
		{"group", fmt.Sprintf("%s:x:%d:", a.Name, a.GID)},
		{"shadow", fmt.Sprintf("%s:!:::::::", a.Name)},
	}
	fmt.Fprintf(sb, "# Create %s user in chroot\n", a.Name)
	for _, r := range records {
		file := etc + "/" + r.file
		fmt.Fprintf(sb, "grep -q '^%s:' %s 2>/dev/null || echo %s >> %s\n", a.Name, file, shellQuote(r.line), file)
	}

	chown := fmt.Sprintf("chown -R %d:%d %s", a.UID, a.GID, a.Home)
	rcLocal := etc + "/rc.local"
	fmt.Fprintf(sb, "\n# Set ownership for %s user home\n", a.Name)
	fmt.Fprintf(sb, "grep -qxF %s %s 2>/dev/null || echo %s >> %s\n\n", shellQuote(chown), rcLocal, shellQuote(chown), rcLocal)
	return nil
}

// bootTarget switches the profile's default target to graphical.target.
// Without it the image boots to multi-user.target and SDDM never starts.
// The edit is skipped when the profile already names graphical.target.
func (c *Compiler) bootTarget(sb *strings.Builder, _ *catalog.Catalog) error {
	if !c.set.Variant().Graphical() {
		return nil
	}
	p := artifact.ProfileDefinition
	fmt.Fprintf(sb, "# Modify %s to change default target\n", p)
	fmt.Fprintf(sb, "grep -q 'graphical.target' %s || sed -i 's/multi-user.target/graphical.target/' %s\n\n", p, p)
	return nil
}

func (c *Compiler) mkarchiso(sb *strings.Builder, _ *catalog.Catalog) error {
	sb.WriteString("echo \"=== Building ISO ===\"\n")
	fmt.Fprintf(sb, "mkarchiso -v -w %s -o %s .\n\n", artifact.WorkDir, artifact.OutputDir)
	return nil
}

func (c *Compiler) listing(sb *strings.Builder, _ *catalog.Catalog) error {
	sb.WriteString("echo \"=== Done! ===\"\n")
	fmt.Fprintf(sb, "echo \"ISO created in %s:\"\n", artifact.OutputDir)
	if c.version != "" {
		fmt.Fprintf(sb, "echo %s\n", shellQuote("Version: "+c.version))
	}
	fmt.Fprintf(sb, "ls -la %s/\n", artifact.OutputDir)
	return nil
}

// shellQuote wraps s in single quotes for bash.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
