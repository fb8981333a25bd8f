// Package artifact defines the files that are materialized into the image
// root file system by the build plan, plus the container build file used to
// create the build image. Every artifact renders deterministically and is
// written through a shell heredoc with its own terminator.
package artifact

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrDelimiterCollision is returned when a heredoc body contains a line
// equal to its terminator, or two artifacts share a terminator.
var ErrDelimiterCollision = errors.New("heredoc delimiter collision")

// Artifact is one generated file of the image.
// Immutable
type Artifact struct {
	// Name is the fixed identifier, e.g. "ssh_setup".
	Name string
	// Path is relative to the profile root, e.g. "airootfs/usr/local/bin/setup-ssh.sh".
	Path string
	// Delimiter terminates the heredoc the artifact is written with.
	Delimiter string
	// Executable marks scripts that need chmod +x after being written.
	Executable bool
	// WantedBy names the systemd target a service unit is enabled under.
	// Empty for everything that is not an enabled unit.
	WantedBy string

	render func() string
}

// Render returns the file content.
func (a Artifact) Render() string {
	if a.render == nil {
		return ""
	}
	return a.render()
}

// Dir returns the directory the artifact is written into.
func (a Artifact) Dir() string {
	return path.Dir(a.Path)
}

// ImagePath is the absolute path of the artifact inside the booted image.
func (a Artifact) ImagePath() string {
	return "/" + strings.TrimPrefix(a.Path, RootFS+"/")
}

// EnablementLink is the path of the symlink that enables the unit, relative
// to the profile root. Empty when WantedBy is empty.
func (a Artifact) EnablementLink() string {
	if a.WantedBy == "" {
		return ""
	}
	return path.Join(RootFS, UnitDir, a.WantedBy+".wants", path.Base(a.Path))
}

// Heredoc renders the artifact as a shell command writing it to its path.
func (a Artifact) Heredoc() (string, error) {
	return Heredoc(">", a.Path, a.Delimiter, a.Render())
}

// Heredoc renders `cat <redirect> <target> << 'DELIM'` followed by body and
// the terminator line. The quoted delimiter disables expansion in the body.
// The body always ends with a newline before the terminator.
func Heredoc(redirect, target, delimiter, body string) (string, error) {
	if delimiter == "" {
		return "", fmt.Errorf("empty heredoc delimiter for %s", target)
	}
	for _, line := range strings.Split(body, "\n") {
		if line == delimiter {
			return "", fmt.Errorf("%w: %s appears in the content written to %s", ErrDelimiterCollision, delimiter, target)
		}
	}
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "cat %s %s << '%s'\n", redirect, target, delimiter)
	sb.WriteString(body)
	sb.WriteString(delimiter)
	sb.WriteString("\n")
	return sb.String(), nil
}
