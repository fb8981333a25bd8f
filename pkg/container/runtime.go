// Package container drives the container runtime: it keeps the build image
// present and launches one privileged container per build with the
// persistent volumes mounted and the build plan as its command.
package container

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrImageBuild is returned when the image build exits non-zero.
	ErrImageBuild = errors.New("container image build failed")
	// ErrContainerRun is returned when the build container exits non-zero.
	ErrContainerRun = errors.New("build container failed")
	// ErrCancelled is returned when a runtime invocation was interrupted
	// or ran past its deadline.
	ErrCancelled = errors.New("build cancelled")
)

// Result is the outcome of one runtime invocation.
type Result struct {
	ExitCode int
	// Output holds the last lines the process wrote, stdout and stderr
	// interleaved. The full stream goes to the writer of the request.
	Output string
}

// ImageInfo is what the runtime reports about a present image.
type ImageInfo struct {
	ID      string
	Created string
	Size    int64
}

// BuildSpec describes an image build.
type BuildSpec struct {
	Tag        string
	ContextDir string
	Output     io.Writer
}

// RunSpec describes one container run.
type RunSpec struct {
	Invocation *Invocation
	Output     io.Writer
}

// Runtime is the command surface of the container runtime the driver
// depends on. The exec implementation shells out to docker or a compatible
// binary, tests use fakes.
type Runtime interface {
	// Probe checks that the runtime binary and its daemon are reachable.
	Probe(ctx context.Context) (Result, error)
	// InspectImage returns nil without error when the image does not exist.
	InspectImage(ctx context.Context, name string) (*ImageInfo, error)
	BuildImage(ctx context.Context, spec BuildSpec) (Result, error)
	Run(ctx context.Context, spec RunSpec) (Result, error)
	// Kill stops a named container. Used after a run was interrupted.
	Kill(ctx context.Context, name string) error
}
