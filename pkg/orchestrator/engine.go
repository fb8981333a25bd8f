// Package orchestrator sequences a build: check the container runtime,
// prepare the persistent volumes, make sure the build image exists, compile
// the build plan and run it in a fresh container.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"isoforge/pkg/artifact"
	"isoforge/pkg/buildlog"
	"isoforge/pkg/catalog"
	"isoforge/pkg/config"
	"isoforge/pkg/container"
	"isoforge/pkg/disk"
	"isoforge/pkg/display"
	"isoforge/pkg/plan"
	"isoforge/pkg/project"
	"isoforge/pkg/recipe"
)

// Options configure an Engine.
type Options struct {
	Config  config.ReadOnly
	Runtime container.Runtime
	// Project defaults to project.Default().
	Project *project.Project
	Variant artifact.Variant
	// Display defaults to a display that discards everything.
	Display display.Display
	// Output receives the streamed container output. Defaults to io.Discard.
	Output io.Writer
	// Timeout bounds the container run. Zero means no limit.
	Timeout time.Duration
}

// Engine owns the project state and runs builds against it.
//
// Builds are strictly sequential and the volumes are not locked: running
// two engines against the same workspace at the same time is the caller's
// responsibility to avoid.
// Mutable
type Engine struct {
	cfg     config.ReadOnly
	rt      container.Runtime
	project *project.Project
	set     artifact.Set
	disp    display.Display
	out     io.Writer
	timeout time.Duration
	driver  *container.Driver
}

// New creates an engine.
func New(opts Options) *Engine {
	e := &Engine{
		cfg:     opts.Config,
		rt:      opts.Runtime,
		project: opts.Project,
		set:     artifact.NewSet(opts.Variant),
		disp:    opts.Display,
		out:     opts.Output,
		timeout: opts.Timeout,
	}
	if e.project == nil {
		e.project = project.Default()
	}
	if e.disp == nil {
		e.disp = display.NewWriterDisplay(io.Discard)
	}
	if e.out == nil {
		e.out = io.Discard
	}
	e.driver = container.NewDriver(e.rt, container.Options{
		Image:         e.cfg.GetImage(),
		Containerfile: artifact.Containerfile(),
		Targets: container.Targets{
			Cache:  artifact.PackageCacheDir,
			Work:   artifact.WorkDir,
			Output: artifact.OutputDir,
		},
		Output: e.out,
	})
	return e
}

// Project returns the project state owned by the engine.
func (e *Engine) Project() *project.Project {
	return e.project
}

// Catalog returns the current package catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.project.Catalog
}

// Variant returns the variant builds are made for.
func (e *Engine) Variant() artifact.Variant {
	return e.set.Variant()
}

// Volumes returns the volume manager of the current project.
func (e *Engine) Volumes() disk.Manager {
	return disk.NewManager(e.cfg, e.project.Name)
}

// AddPackage adds pkg to category. An already listed package is reported
// with catalog.ErrPackageExists and leaves the catalog unchanged.
func (e *Engine) AddPackage(category, pkg string) error {
	if err := e.project.Catalog.Add(category, pkg); err != nil {
		if errors.Is(err, catalog.ErrPackageExists) {
			slog.Debug("Package already exists", "category", category, "package", pkg)
		}
		return err
	}
	slog.Debug("Added package", "category", category, "package", pkg)
	return nil
}

// RemovePackage removes pkg from every category that lists it.
func (e *Engine) RemovePackage(pkg string) ([]string, error) {
	from, err := e.project.Catalog.Remove(pkg)
	if err != nil {
		if errors.Is(err, catalog.ErrPackageNotFound) {
			slog.Debug("Package not found", "package", pkg)
		}
		return nil, err
	}
	slog.Debug("Removed package", "package", pkg, "categories", from)
	return from, nil
}

// ApplyRecipe runs r against a copy of the catalog and adopts the copy only
// if the recipe succeeds.
func (e *Engine) ApplyRecipe(r *recipe.Recipe) (*recipe.Result, error) {
	work := e.project.Catalog.Clone()
	res, err := r.Apply(work, recipe.Context{
		Name:    e.project.Name,
		Version: e.project.Version,
		Variant: e.set.Variant().String(),
	})
	if err != nil {
		return nil, err
	}
	e.project.Catalog = work
	slog.Info("Applied recipe", "recipe", r.Name, "added", res.Added, "removed", res.Removed)
	return res, nil
}

// Save writes the project to path.
func (e *Engine) Save(path string) error {
	if err := project.Save(path, e.project.Document()); err != nil {
		return err
	}
	slog.Debug("Configuration saved", "path", path)
	return nil
}

// Load replaces the project state with the content of path. When the file
// is missing or malformed the error is returned and the state is kept.
func (e *Engine) Load(path string) error {
	doc, err := project.Load(path)
	if err != nil {
		return err
	}
	e.project.Apply(doc)
	slog.Debug("Configuration loaded", "path", path, "project", e.project.Name, "version", e.project.Version)
	return nil
}

// Plan compiles the build plan for the current state.
func (e *Engine) Plan() (string, error) {
	return plan.NewCompiler(e.set, e.project.Version).Compile(e.project.Catalog)
}

// Build runs the whole pipeline once. Fatal failures are returned as
// *StageError.
func (e *Engine) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	p := e.project
	task := e.disp.StartTask(fmt.Sprintf("%s v%s (%s)", p.Name, p.Version, e.set.Variant()))
	defer task.Done()

	runtime := e.cfg.GetRuntime()
	task.SetStage("Checking runtime", runtime)
	probe, err := e.rt.Probe(ctx)
	if err != nil {
		return nil, stageErr(StagePrerequisites, fmt.Errorf("%w: %s: %v", ErrPrerequisiteMissing, runtime, err))
	}
	if probe.ExitCode != 0 {
		return nil, stageErr(StagePrerequisites, fmt.Errorf("%w: %s exited with code %d: %s",
			ErrPrerequisiteMissing, runtime, probe.ExitCode, lastLine(probe.Output)))
	}
	task.Log(fmt.Sprintf("%s server %s", runtime, firstLine(probe.Output)))

	vols := e.Volumes()
	task.SetStage("Preparing volumes", e.cfg.GetWorkspace())
	if err := vols.Ensure(); err != nil {
		return nil, stageErr(StageVolumes, err)
	}

	task.SetStage("Ensuring image", e.cfg.GetImage())
	if err := e.driver.EnsureImage(ctx); err != nil {
		return nil, stageErr(StageImage, err)
	}

	task.SetStage("Compiling plan", "")
	script, err := e.Plan()
	if err != nil {
		return nil, stageErr(StagePlan, err)
	}

	if s, err := vols.CacheStats(); err == nil {
		task.Log(fmt.Sprintf("Cache: %d packages, %s", s.Packages, disk.FormatSize(s.Size)))
	}

	logPath := buildlog.Path(e.cfg.GetLogDir(), p.Name, p.Version)
	transcript, err := buildlog.Create(logPath)
	if err != nil {
		slog.Warn("Build log disabled", "error", err)
		transcript = nil
		logPath = ""
		e.driver.SetOutput(e.out)
	} else {
		e.driver.SetOutput(io.MultiWriter(e.out, transcript))
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	task.SetStage("Running build", vols.Output().Path)
	res, runErr := e.driver.Run(runCtx, container.Volumes{
		Cache:  vols.Cache().Path,
		Work:   vols.Work().Path,
		Output: vols.Output().Path,
	}, script)
	e.driver.SetOutput(e.out)
	if transcript != nil {
		if err := transcript.Close(); err != nil {
			slog.Warn("Failed to finish build log", "path", logPath, "error", err)
		}
	}
	if runErr != nil {
		if logPath != "" {
			slog.Error("Build failed", "log", logPath, "exit_code", res.ExitCode)
		}
		return nil, stageErr(StageRun, runErr)
	}

	report := &Report{
		Project:    p.Name,
		Version:    p.Version,
		Variant:    e.set.Variant(),
		OutputDir:  vols.Output().Path,
		Image:      e.cfg.GetImage(),
		ImageBuilt: e.driver.Built(),
		LogPath:    logPath,
		Result:     res,
	}
	if info := e.driver.Image(); info != nil {
		report.ImageID = info.ID
	}
	if stats, err := vols.CacheStats(); err != nil {
		slog.Warn("Cache statistics unavailable", "path", vols.Cache().Path, "error", err)
	} else {
		report.Cache = stats
	}
	report.Duration = time.Since(start)
	return report, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	return s[strings.LastIndex(s, "\n")+1:]
}
