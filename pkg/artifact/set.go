package artifact

import (
	"fmt"
	"path"
	"strings"
)

// Variant selects which artifacts go into the image.
type Variant string

const (
	// VariantDesktop boots into KDE Plasma with an auto-login live account.
	VariantDesktop Variant = "desktop"
	// VariantHeadless only carries the SSH server and the imaging tools.
	VariantHeadless Variant = "headless"
)

// ParseVariant converts a string into a Variant. The empty string selects
// the desktop variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "", "desktop", "kde":
		return VariantDesktop, nil
	case "headless", "minimal":
		return VariantHeadless, nil
	default:
		return VariantDesktop, fmt.Errorf("unsupported variant: %s", s)
	}
}

// String returns the string representation of the Variant.
func (v Variant) String() string {
	return string(v)
}

// Graphical reports whether the image boots to the graphical target.
func (v Variant) Graphical() bool {
	return v == VariantDesktop
}

// Login returns the credentials printed after a successful build.
func (v Variant) Login() string {
	if v.Graphical() {
		return "live/live"
	}
	return "root/hardclone (ssh)"
}

var (
	sshSetup = Artifact{
		Name:       "ssh_setup",
		Path:       RootFS + "/usr/local/bin/setup-ssh.sh",
		Delimiter:  "SSH_EOF",
		Executable: true,
		render:     func() string { return sshSetupScript },
	}
	kdeSetup = Artifact{
		Name:       "kde_setup",
		Path:       RootFS + "/usr/local/bin/setup-kde.sh",
		Delimiter:  "KDE_EOF",
		Executable: true,
		render:     func() string { return kdeSetupScript },
	}
	sshdConf = Artifact{
		Name:      "sshd_config",
		Path:      RootFS + "/etc/ssh/sshd_config",
		Delimiter: "SSHD_EOF",
		render:    func() string { return sshdConfig },
	}
	sddmConf = Artifact{
		Name:      "sddm_config",
		Path:      RootFS + "/etc/sddm.conf",
		Delimiter: "SDDM_EOF",
		render:    func() string { return sddmConfig },
	}
	sshUnit = Artifact{
		Name:      "systemd_service",
		Path:      RootFS + "/" + UnitDir + "/auto-ssh.service",
		Delimiter: "SERVICE_EOF",
		WantedBy:  "multi-user.target",
		render:    func() string { return sshService },
	}
	kdeUnit = Artifact{
		Name:      "kde_autostart",
		Path:      RootFS + "/" + UnitDir + "/auto-kde.service",
		Delimiter: "KDE_SERVICE_EOF",
		WantedBy:  "multi-user.target",
		render:    func() string { return kdeService },
	}
	imagingTools = Artifact{
		Name:       "imaging_tools",
		Path:       RootFS + "/usr/local/bin/imaging-tools.sh",
		Delimiter:  "TOOLS_EOF",
		Executable: true,
		render:     func() string { return imagingToolsScript },
	}
)

// Set is the ordered collection of artifacts of one variant.
// Immutable
type Set struct {
	variant   Variant
	artifacts []Artifact
	// extraDirs are scaffolded even though no artifact is written there,
	// the provisioning scripts expect them in the image.
	extraDirs []string
}

// NewSet returns the artifacts of the given variant in materialization order.
func NewSet(v Variant) Set {
	if v == VariantHeadless {
		return Set{
			variant:   v,
			artifacts: []Artifact{sshSetup, sshdConf, sshUnit, imagingTools},
			extraDirs: []string{RootFS + "/etc/samba"},
		}
	}
	return Set{
		variant:   VariantDesktop,
		artifacts: []Artifact{sshSetup, kdeSetup, sshdConf, sddmConf, sshUnit, kdeUnit, imagingTools},
		extraDirs: []string{
			RootFS + "/etc/samba",
			RootFS + "/etc/sddm.conf.d",
			RootFS + "/home/live/.config",
			RootFS + "/home/live/Desktop",
		},
	}
}

// Variant returns the variant the set was built for.
func (s Set) Variant() Variant {
	return s.variant
}

// Artifacts returns the artifacts in materialization order.
func (s Set) Artifacts() []Artifact {
	return append([]Artifact(nil), s.artifacts...)
}

// Get looks an artifact up by name.
func (s Set) Get(name string) (Artifact, bool) {
	for _, a := range s.artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// Units returns the artifacts that must be enabled at boot.
func (s Set) Units() []Artifact {
	var units []Artifact
	for _, a := range s.artifacts {
		if a.WantedBy != "" {
			units = append(units, a)
		}
	}
	return units
}

// Dirs returns every directory that has to exist before the artifacts are
// written: artifact parents, extra scaffolding and the enablement target
// directories. The order is stable and duplicates are dropped.
func (s Set) Dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for _, a := range s.artifacts {
		add(a.Dir())
	}
	for _, d := range s.extraDirs {
		add(d)
	}
	for _, a := range s.Units() {
		add(path.Dir(a.EnablementLink()))
	}
	return dirs
}

// Validate checks that names and delimiters are unique, that no delimiter
// equals one of the reserved ones, and that no artifact body contains its
// own delimiter as a line.
func (s Set) Validate(reserved ...string) error {
	names := make(map[string]bool)
	delims := make(map[string]string)
	for _, r := range reserved {
		delims[r] = "build plan"
	}
	for _, a := range s.artifacts {
		if names[a.Name] {
			return fmt.Errorf("duplicate artifact name: %s", a.Name)
		}
		names[a.Name] = true
		if owner, ok := delims[a.Delimiter]; ok {
			return fmt.Errorf("%w: %s used by %s and %s", ErrDelimiterCollision, a.Delimiter, owner, a.Name)
		}
		delims[a.Delimiter] = a.Name
		if _, err := a.Heredoc(); err != nil {
			return err
		}
	}
	return nil
}
