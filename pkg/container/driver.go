package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ImageState is the driver's view of the build image.
type ImageState int

const (
	MISSING ImageState = iota
	BUILDING
	PRESENT
)

func (s ImageState) String() string {
	switch s {
	case MISSING:
		return "missing"
	case BUILDING:
		return "building"
	case PRESENT:
		return "present"
	default:
		return fmt.Sprintf("ImageState(%d)", int(s))
	}
}

// Volumes are the host directories mounted into the build container.
type Volumes struct {
	Cache  string
	Work   string
	Output string
}

// Paths inside the container the volumes are mounted on.
type Targets struct {
	Cache  string
	Work   string
	Output string
}

// Options configure a Driver.
type Options struct {
	Image         string
	Containerfile string
	Targets       Targets
	// Output receives the streamed runtime output of builds and runs.
	Output io.Writer
	// KillTimeout bounds the `kill` issued after an interrupted run.
	KillTimeout time.Duration
}

// Driver keeps the build image present and launches build containers.
// It builds the image at most once per process.
type Driver struct {
	rt    Runtime
	opts  Options
	state ImageState
	info  *ImageInfo
	built bool
}

// NewDriver creates a driver. The image is assumed MISSING until probed.
func NewDriver(rt Runtime, opts Options) *Driver {
	if opts.KillTimeout == 0 {
		opts.KillTimeout = 30 * time.Second
	}
	return &Driver{rt: rt, opts: opts, state: MISSING}
}

// SetOutput redirects the streamed runtime output of later calls.
func (d *Driver) SetOutput(w io.Writer) {
	d.opts.Output = w
}

// State returns the last known image state.
func (d *Driver) State() ImageState {
	return d.state
}

// Built reports whether this driver built the image.
func (d *Driver) Built() bool {
	return d.built
}

// Image returns what the runtime reported about the image, nil until the
// image is PRESENT and was inspected.
func (d *Driver) Image() *ImageInfo {
	return d.info
}

// EnsureImage probes for the image and builds it when missing. The build
// file is written to a temporary context directory that is removed
// whether the build succeeds or not.
func (d *Driver) EnsureImage(ctx context.Context) error {
	if d.state == PRESENT {
		return nil
	}

	info, err := d.rt.InspectImage(ctx, d.opts.Image)
	if err != nil {
		return err
	}
	if info != nil {
		d.state = PRESENT
		d.info = info
		slog.Info("Using existing image", "image", d.opts.Image, "id", info.ID, "created", info.Created)
		return nil
	}

	d.state = BUILDING
	slog.Info("Building container image", "image", d.opts.Image)
	res, err := d.build(ctx)
	if err != nil {
		d.state = MISSING
		return err
	}
	if res.ExitCode != 0 {
		d.state = MISSING
		return fmt.Errorf("%w: %s exited with code %d", ErrImageBuild, d.opts.Image, res.ExitCode)
	}

	d.state = PRESENT
	d.built = true
	if info, err := d.rt.InspectImage(ctx, d.opts.Image); err == nil {
		d.info = info
	}
	slog.Info("Container image built", "image", d.opts.Image)
	return nil
}

func (d *Driver) build(ctx context.Context) (Result, error) {
	dir, err := os.MkdirTemp("", "isoforge-build-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create build context: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("Failed to remove build context", "dir", dir, "error", err)
		}
	}()

	file := filepath.Join(dir, "Dockerfile")
	if err := os.WriteFile(file, []byte(d.opts.Containerfile), 0644); err != nil {
		return Result{}, fmt.Errorf("failed to write build file: %w", err)
	}

	res, err := d.rt.BuildImage(ctx, BuildSpec{Tag: d.opts.Image, ContextDir: dir, Output: d.opts.Output})
	if err != nil {
		return res, fmt.Errorf("image build: %w", err)
	}
	return res, nil
}

// Invocation returns the run invocation for plan without launching it.
func (d *Driver) Invocation(v Volumes, plan string) *Invocation {
	inv := NewInvocation(d.opts.Image)
	inv.SetName("isoforge-" + uuid.NewString())
	inv.AddFlag("--rm")
	inv.AddFlag("--privileged")
	inv.AddMount(MOUNT_RW, v.Output, d.opts.Targets.Output)
	inv.AddMount(MOUNT_RW, v.Cache, d.opts.Targets.Cache)
	inv.AddMount(MOUNT_RW, v.Work, d.opts.Targets.Work)
	inv.SetCommand("bash", "-c", plan)
	return inv
}

// Run launches one container executing plan and blocks until it exits.
// It succeeds only if the container exits with status zero. When ctx is
// cancelled the container is killed by name before returning.
func (d *Driver) Run(ctx context.Context, v Volumes, plan string) (Result, error) {
	inv := d.Invocation(v, plan)
	slog.Info("Starting build container", "name", inv.Name(), "image", inv.Image())

	res, err := d.rt.Run(ctx, RunSpec{Invocation: inv, Output: d.opts.Output})
	if ctx.Err() != nil {
		d.kill(inv.Name())
		if errors.Is(err, ErrCancelled) {
			return res, err
		}
		return res, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrContainerRun, err)
	}
	if res.ExitCode != 0 {
		return res, fmt.Errorf("%w: exit code %d", ErrContainerRun, res.ExitCode)
	}
	return res, nil
}

func (d *Driver) kill(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.KillTimeout)
	defer cancel()
	if err := d.rt.Kill(ctx, name); err != nil {
		slog.Warn("Failed to stop interrupted container", "name", name, "error", err)
		return
	}
	slog.Info("Stopped interrupted container", "name", name)
}
