package container

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fakeDocker = `#!/bin/sh
case "$1" in
  version)
    if [ -n "$FAKE_DOCKER_DAEMON_DOWN" ]; then
      echo "Cannot connect to the Docker daemon" >&2
      exit 1
    fi
    echo "27.0.0"
    ;;
  image)
    if [ "$3" = "slow" ]; then
      sleep 30
    fi
    if [ "$3" = "present" ]; then
      echo '[{"Id":"sha256:abc","Created":"2026-01-01T00:00:00Z","Size":1024}]'
      exit 0
    fi
    echo "Error: No such image: $3" >&2
    exit 1
    ;;
  build)
    echo "building $3"
    ;;
  kill)
    echo "$2"
    ;;
  run)
    for a; do last=$a; done
    exec sh -c "$last"
    ;;
esac
`

func fakeExec(t *testing.T) *Exec {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not found, skipping exec test")
	}
	bin := filepath.Join(t.TempDir(), "docker")
	if err := os.WriteFile(bin, []byte(fakeDocker), 0755); err != nil {
		t.Fatal(err)
	}
	e := NewExec(bin)
	e.GracePeriod = time.Second
	return e
}

func TestExecProbe(t *testing.T) {
	res, err := fakeExec(t).Probe(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 || res.Output != "27.0.0" {
		t.Errorf("Unexpected probe result %+v", res)
	}
}

func TestExecProbeDaemonDown(t *testing.T) {
	e := fakeExec(t)
	t.Setenv("FAKE_DOCKER_DAEMON_DOWN", "1")
	res, err := e.Probe(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 1 || !strings.Contains(res.Output, "Cannot connect") {
		t.Errorf("Expected a failing probe, got %+v", res)
	}
}

func TestExecProbeMissingBinary(t *testing.T) {
	e := NewExec(filepath.Join(t.TempDir(), "nope"))
	if _, err := e.Probe(context.Background()); err == nil {
		t.Error("Expected error for missing binary")
	}
}

func TestExecInspectImage(t *testing.T) {
	e := fakeExec(t)
	info, err := e.InspectImage(context.Background(), "present")
	if err != nil {
		t.Fatal(err)
	}
	if info == nil || info.ID != "sha256:abc" || info.Size != 1024 {
		t.Errorf("Unexpected image info %+v", info)
	}

	info, err = e.InspectImage(context.Background(), "absent")
	if err != nil || info != nil {
		t.Errorf("Expected absent image, got %+v, %v", info, err)
	}
}

func TestExecInspectImageCancelled(t *testing.T) {
	e := fakeExec(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	info, err := e.InspectImage(ctx, "slow")
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Expected ErrCancelled, got %+v, %v", info, err)
	}
}

func TestExecRunStreamsOutput(t *testing.T) {
	e := fakeExec(t)
	inv := NewInvocation("img")
	inv.SetCommand("bash", "-c", "echo out; echo err >&2; exit 3")

	var sink strings.Builder
	res, err := e.Run(context.Background(), RunSpec{Invocation: inv, Output: &sink})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", res.ExitCode)
	}
	for _, s := range []string{"out", "err"} {
		if !strings.Contains(sink.String(), s) || !strings.Contains(res.Output, s) {
			t.Errorf("Expected %q in streamed and captured output", s)
		}
	}
}

func TestExecRunCancelled(t *testing.T) {
	e := fakeExec(t)
	inv := NewInvocation("img")
	inv.SetCommand("bash", "-c", "sleep 30")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Run(ctx, RunSpec{Invocation: inv})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("Expected the process group to be terminated promptly")
	}
}

func TestExecRunLongLine(t *testing.T) {
	e := fakeExec(t)
	inv := NewInvocation("img")
	inv.SetCommand("bash", "-c", "head -c 2097152 /dev/zero | tr '\\0' x; echo; echo done; exit 3")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var sink strings.Builder
	res, err := e.Run(ctx, RunSpec{Invocation: inv, Output: &sink})
	if err != nil {
		t.Fatalf("Expected the run to finish, got %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", res.ExitCode)
	}
	if n := strings.Count(sink.String(), "x"); n != 2097152 {
		t.Errorf("Expected every byte of the long line, got %d", n)
	}
	if !strings.HasSuffix(res.Output, "\ndone") {
		t.Errorf("Expected output tail to end with done, got %q", res.Output[max(0, len(res.Output)-40):])
	}
	for _, line := range strings.Split(res.Output, "\n") {
		if len(line) > maxTailLineBytes+3 {
			t.Errorf("Expected tail lines to be shortened, got %d bytes", len(line))
		}
	}
}

func TestExecRunWithoutTrailingNewline(t *testing.T) {
	e := fakeExec(t)
	inv := NewInvocation("img")
	inv.SetCommand("bash", "-c", "printf 'first\\nlast'; printf 'partial' >&2")

	var sink strings.Builder
	res, err := e.Run(context.Background(), RunSpec{Invocation: inv, Output: &sink})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 {
		t.Errorf("Expected exit code 0, got %d", res.ExitCode)
	}
	for _, s := range []string{"first", "last", "partial"} {
		if !strings.Contains(res.Output, s) || !strings.Contains(sink.String(), s+"\n") {
			t.Errorf("Expected line %q in streamed and captured output", s)
		}
	}
}

type failingReader struct {
	data  *strings.Reader
	reads int
}

func (r *failingReader) Read(p []byte) (int, error) {
	r.reads++
	if r.data.Len() > 0 {
		return r.data.Read(p)
	}
	return 0, errors.New("pipe broken")
}

func TestLineSinkPumpError(t *testing.T) {
	s := newLineSink(nil, 5)
	r := &failingReader{data: strings.NewReader("a\nb\n")}
	err := s.pump(r)
	if err == nil || !strings.Contains(err.Error(), "pipe broken") {
		t.Fatalf("Expected pipe error, got %v", err)
	}
	if got := s.tail(); got != "a\nb" {
		t.Errorf("Expected lines before the error, got %q", got)
	}
}

func TestLineSinkSplitsLongLines(t *testing.T) {
	var out strings.Builder
	s := newLineSink(&out, 5)
	long := strings.Repeat("y", maxLineBytes+10)
	if err := s.pump(strings.NewReader(long + "\r\nz\n")); err != nil {
		t.Fatal(err)
	}
	if strings.Count(out.String(), "y") != len(long) {
		t.Errorf("Expected the whole long line to be passed on")
	}
	if !strings.HasSuffix(out.String(), "\nz\n") {
		t.Errorf("Expected the next line after the long one, got suffix %q", out.String()[out.Len()-5:])
	}
	if strings.Contains(out.String(), "\r") {
		t.Errorf("Expected carriage returns to be dropped")
	}
}

func TestLineSinkTail(t *testing.T) {
	s := newLineSink(nil, 3)
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		s.write(l)
	}
	if got := s.tail(); got != "c\nd\ne" {
		t.Errorf("Expected c,d,e got %q", got)
	}

	s = newLineSink(nil, 3)
	s.write("x")
	if got := s.tail(); got != "x" {
		t.Errorf("Expected x, got %q", got)
	}
}

func TestParseInspect(t *testing.T) {
	info, err := parseInspect([]byte(`[{"Id":"sha256:1","Created":"c"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if info.ID != "sha256:1" || info.Created != "c" || info.Size != 0 {
		t.Errorf("Unexpected info %+v", info)
	}
	if _, err := parseInspect([]byte(`[]`)); err == nil {
		t.Error("Expected error for empty inspect output")
	}
	if _, err := parseInspect([]byte(`not json`)); err == nil {
		t.Error("Expected error for malformed inspect output")
	}
}

func TestSummarize(t *testing.T) {
	got := summarize([]string{"run", "line1\nline2"})
	if got[0] != "run" || got[1] != "<11 bytes>" {
		t.Errorf("Unexpected summary %v", got)
	}
}
