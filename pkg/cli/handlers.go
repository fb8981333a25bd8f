package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"isoforge/pkg/artifact"
	"isoforge/pkg/buildlog"
	"isoforge/pkg/catalog"
	"isoforge/pkg/common"
	"isoforge/pkg/config"
	"isoforge/pkg/container"
	"isoforge/pkg/display"
	"isoforge/pkg/orchestrator"
	"isoforge/pkg/project"
	"isoforge/pkg/recipe"
)

// Managers are the long lived collaborators shared by every command.
type Managers struct {
	SysCfg  config.ReadOnly
	Disp    display.Display
	Runtime container.Runtime
	// Stdout receives container output, build plans and transcripts.
	Stdout io.Writer
}

// session is the project state a single command works on.
type session struct {
	engine      *orchestrator.Engine
	projectFile string
}

type sessionHandler func(ctx context.Context, inv *Invocation, s *session) (*ExecutionResult, error)

// Bind registers the handlers of every command of the embedded definition.
func Bind(e *Engine, m *Managers) {
	e.Register("build", m.with(m.build))
	e.Register("plan", m.with(m.plan))
	e.Register("pkg/list", m.with(m.pkgList))
	e.Register("pkg/add", m.with(m.pkgAdd))
	e.Register("pkg/remove", m.with(m.pkgRemove))
	e.Register("config/save", m.with(m.configSave))
	e.Register("config/load", m.with(m.configLoad))
	e.Register("config/show", m.with(m.configShow))
	e.Register("cache/info", m.with(m.cacheInfo))
	e.Register("cache/clear", m.with(m.cacheClear))
	e.Register("work/clear", m.with(m.workClear))
	e.Register("volumes", m.with(m.volumes))
	e.Register("log", m.with(m.log))
	e.Register("version", HandlerFunc(func(context.Context, *Invocation) (*ExecutionResult, error) {
		return common.Success(&common.Output{Message: config.GetBuildInfo()}), nil
	}))
}

func (m *Managers) with(h sessionHandler) Handler {
	return HandlerFunc(func(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
		s, err := m.open(inv)
		if err != nil {
			return nil, err
		}
		return h(ctx, inv, s)
	})
}

// open loads the active project and applies the recipe. A project file that
// is missing or unreadable leaves the defaults in place.
func (m *Managers) open(inv *Invocation) (*session, error) {
	variant, err := artifact.ParseVariant(inv.String("variant"))
	if err != nil {
		return nil, err
	}
	timeout, err := inv.Duration("timeout")
	if err != nil {
		return nil, err
	}

	proj := project.Default()
	name := inv.String("project")
	if name != "" {
		proj.Name = name
	}
	file := inv.String("config")
	if file == "" {
		file = m.SysCfg.GetProjectFile(proj.Name)
	}

	stdout := m.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	eng := orchestrator.New(orchestrator.Options{
		Config:  m.SysCfg,
		Runtime: m.Runtime,
		Project: proj,
		Variant: variant,
		Display: m.Disp,
		Output:  stdout,
		Timeout: timeout,
	})

	if err := eng.Load(file); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			slog.Debug("No saved project, using defaults", "path", file)
		} else {
			slog.Warn("Ignoring project file", "path", file, "error", err)
		}
	}
	if name != "" {
		proj.Name = name
	}
	if v := inv.String("iso-version"); v != "" {
		proj.Version = v
	}

	if path := inv.String("recipe"); path != "" {
		r, err := recipe.Load(path)
		if err != nil {
			return nil, err
		}
		r.Print = m.Disp.Print
		if _, err := eng.ApplyRecipe(r); err != nil {
			return nil, err
		}
	}
	return &session{engine: eng, projectFile: file}, nil
}

func (s *session) persist() error {
	return s.engine.Save(s.projectFile)
}

func (m *Managers) build(ctx context.Context, _ *Invocation, s *session) (*ExecutionResult, error) {
	report, err := s.engine.Build(ctx)
	if err != nil {
		return nil, err
	}
	return common.Success(report.Output()), nil
}

func (m *Managers) plan(_ context.Context, _ *Invocation, s *session) (*ExecutionResult, error) {
	script, err := s.engine.Plan()
	if err != nil {
		return nil, err
	}
	return common.Success(&common.Output{Text: script}), nil
}

func (m *Managers) pkgList(_ context.Context, _ *Invocation, s *session) (*ExecutionResult, error) {
	cat := s.engine.Catalog()
	return common.Success(&common.Output{
		Message: fmt.Sprintf("%d packages in %d categories", cat.Len(), len(cat.Categories())),
		Text:    strings.TrimPrefix(cat.RenderText(), "\n"),
	}), nil
}

func (m *Managers) pkgAdd(_ context.Context, inv *Invocation, s *session) (*ExecutionResult, error) {
	category, pkg := inv.Args["category"], inv.Args["package"]
	err := s.engine.AddPackage(category, pkg)
	if errors.Is(err, catalog.ErrPackageExists) {
		return common.Success(&common.Output{Message: fmt.Sprintf("Package %s already exists in %s", pkg, category)}), nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return common.Success(&common.Output{
		Message: fmt.Sprintf("Added %s to %s", pkg, category),
		KV:      []common.KV{{Key: "Project file", Value: s.projectFile}},
	}), nil
}

func (m *Managers) pkgRemove(_ context.Context, inv *Invocation, s *session) (*ExecutionResult, error) {
	pkg := inv.Args["package"]
	from, err := s.engine.RemovePackage(pkg)
	if errors.Is(err, catalog.ErrPackageNotFound) {
		return common.Success(&common.Output{Message: fmt.Sprintf("Package %s not found", pkg)}), nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return common.Success(&common.Output{
		Message: fmt.Sprintf("Removed %s from %s", pkg, strings.Join(from, ", ")),
		KV:      []common.KV{{Key: "Project file", Value: s.projectFile}},
	}), nil
}

func (m *Managers) configSave(_ context.Context, inv *Invocation, s *session) (*ExecutionResult, error) {
	file := inv.Args["file"]
	if err := s.engine.Save(file); err != nil {
		return nil, err
	}
	return common.Success(&common.Output{Message: fmt.Sprintf("Configuration saved to %s", file)}), nil
}

// configLoad fails when file cannot be loaded, the active project file is
// only rewritten after a successful load.
func (m *Managers) configLoad(_ context.Context, inv *Invocation, s *session) (*ExecutionResult, error) {
	file := inv.Args["file"]
	if err := s.engine.Load(file); err != nil {
		return nil, err
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	p := s.engine.Project()
	return common.Success(&common.Output{
		Message: fmt.Sprintf("Configuration loaded from %s", file),
		KV: []common.KV{
			{Key: "Project", Value: p.Name},
			{Key: "Version", Value: p.Version},
			{Key: "Packages", Value: fmt.Sprintf("%d", p.Catalog.Len())},
			{Key: "Project file", Value: s.projectFile},
		},
	}), nil
}

func (m *Managers) configShow(_ context.Context, _ *Invocation, s *session) (*ExecutionResult, error) {
	p := s.engine.Project()
	doc, err := json.MarshalIndent(p.Document(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode project: %w", err)
	}
	vols := s.engine.Volumes()
	return common.Success(&common.Output{
		KV: []common.KV{
			{Key: "Project", Value: p.Name},
			{Key: "Version", Value: p.Version},
			{Key: "Variant", Value: s.engine.Variant().String()},
			{Key: "Project file", Value: s.projectFile},
			{Key: "Runtime", Value: m.SysCfg.GetRuntime()},
			{Key: "Image", Value: m.SysCfg.GetImage()},
			{Key: "Cache", Value: vols.Cache().Path},
			{Key: "Work", Value: vols.Work().Path},
			{Key: "Output", Value: vols.Output().Path},
			{Key: "Logs", Value: m.SysCfg.GetLogDir()},
		},
		Text: string(doc),
	}), nil
}

func (m *Managers) cacheInfo(_ context.Context, _ *Invocation, s *session) (*ExecutionResult, error) {
	return s.engine.Volumes().CacheInfo()
}

func (m *Managers) cacheClear(_ context.Context, _ *Invocation, s *session) (*ExecutionResult, error) {
	return s.engine.Volumes().ClearCache()
}

func (m *Managers) workClear(_ context.Context, _ *Invocation, s *session) (*ExecutionResult, error) {
	return s.engine.Volumes().ClearWork()
}

func (m *Managers) volumes(_ context.Context, _ *Invocation, s *session) (*ExecutionResult, error) {
	return s.engine.Volumes().Info()
}

func (m *Managers) log(_ context.Context, _ *Invocation, s *session) (*ExecutionResult, error) {
	p := s.engine.Project()
	path := buildlog.Path(m.SysCfg.GetLogDir(), p.Name, p.Version)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no build log for %s v%s", p.Name, p.Version)
	}
	stdout := m.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	if err := buildlog.Copy(stdout, path); err != nil {
		return nil, err
	}
	return &ExecutionResult{ExitCode: 0}, nil
}
