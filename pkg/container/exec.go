package container

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultGracePeriod is how long an interrupted runtime process gets after
// SIGTERM before it is killed.
const DefaultGracePeriod = 10 * time.Second

// tailLines is the number of output lines kept in Result.Output.
const tailLines = 40

// maxLineBytes bounds one output line. Longer lines, such as progress bars
// redrawn with carriage returns, are passed on in pieces of this size.
const maxLineBytes = 64 * 1024

// maxTailLineBytes bounds one line of Result.Output.
const maxTailLineBytes = 512

// Exec runs a docker compatible binary.
type Exec struct {
	Binary      string
	GracePeriod time.Duration
}

// NewExec returns a runtime invoking binary, e.g. "docker" or "podman".
func NewExec(binary string) *Exec {
	return &Exec{Binary: binary, GracePeriod: DefaultGracePeriod}
}

// Probe asks the daemon for its version, so a stopped daemon fails here
// with a non-zero exit instead of later at the image stage.
func (e *Exec) Probe(ctx context.Context) (Result, error) {
	return e.run(ctx, nil, "version", "--format", "{{.Server.Version}}")
}

func (e *Exec) InspectImage(ctx context.Context, name string) (*ImageInfo, error) {
	var out strings.Builder
	cmd := e.command(ctx, "image", "inspect", name)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to inspect image %s: %w", name, err)
	}
	return parseInspect([]byte(out.String()))
}

func (e *Exec) BuildImage(ctx context.Context, spec BuildSpec) (Result, error) {
	return e.run(ctx, spec.Output, "build", "-t", spec.Tag, spec.ContextDir)
}

func (e *Exec) Run(ctx context.Context, spec RunSpec) (Result, error) {
	return e.run(ctx, spec.Output, spec.Invocation.Args()...)
}

func (e *Exec) Kill(ctx context.Context, name string) error {
	out, err := e.command(ctx, "kill", name).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to kill container %s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// command prepares the runtime process. It runs in its own process group;
// cancelling ctx sends SIGTERM to the whole group and the process is killed
// once the grace period is over.
func (e *Exec) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, e.Binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = e.GracePeriod
	return cmd
}

// run streams stdout and stderr line by line into sink and returns the exit
// code together with the output tail. A non-zero exit is not an error here,
// the caller decides what it means.
func (e *Exec) run(ctx context.Context, sink io.Writer, args ...string) (Result, error) {
	slog.Debug("Invoking container runtime", "binary", e.Binary, "args", summarize(args))

	cmd := e.command(ctx, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, err
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("failed to start %s: %w", e.Binary, err)
	}

	lines := newLineSink(sink, tailLines)
	var g errgroup.Group
	g.Go(func() error { return lines.pump(stdout) })
	g.Go(func() error { return lines.pump(stderr) })
	pumpErr := g.Wait()
	waitErr := cmd.Wait()

	res := Result{Output: lines.tail()}
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, waitErr
	}
	if pumpErr != nil {
		return res, fmt.Errorf("failed to read runtime output: %w", pumpErr)
	}
	return res, nil
}

// summarize shortens long arguments, the build plan in particular, for
// logging.
func summarize(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if len(a) > 80 || strings.Contains(a, "\n") {
			a = fmt.Sprintf("<%d bytes>", len(a))
		}
		out[i] = a
	}
	return out
}

// lineSink serializes lines from several pipes into one writer and keeps
// the last n of them.
type lineSink struct {
	mu   sync.Mutex
	w    io.Writer
	ring []string
	next int
	full bool
}

func newLineSink(w io.Writer, n int) *lineSink {
	return &lineSink{w: w, ring: make([]string, n)}
}

// pump reads r until EOF. The pipe is always drained, even after a read
// error, so the process writing to it is never blocked.
func (s *lineSink) pump(r io.Reader) error {
	br := bufio.NewReaderSize(r, maxLineBytes)
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			s.write(strings.TrimRight(string(chunk), "\r\n"))
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF):
			return nil
		default:
			io.Copy(io.Discard, r)
			return err
		}
	}
}

func (s *lineSink) write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		fmt.Fprintln(s.w, line)
	}
	if len(line) > maxTailLineBytes {
		line = line[:maxTailLineBytes] + "..."
	}
	s.ring[s.next] = line
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.full = true
	}
}

func (s *lineSink) tail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []string
	if s.full {
		lines = append(lines, s.ring[s.next:]...)
	}
	lines = append(lines, s.ring[:s.next]...)
	return strings.Join(lines, "\n")
}
