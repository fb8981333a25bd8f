// Package disk manages the persistent build volumes: the package cache,
// the work directory of the image tool and the output directory.
// Volumes are created lazily and only ever emptied on explicit request.
package disk

import (
	"fmt"
	"log/slog"

	"isoforge/pkg/common"
	"isoforge/pkg/config"
)

// Volume is a persistent host directory mounted into build containers.
type Volume struct {
	Label string
	Path  string
}

type manager struct {
	cfg     config.ReadOnly
	project string
}

// Manager is a pointer to the internal manager implementation.
type Manager = *manager

// NewManager creates a volume manager for project.
func NewManager(cfg config.ReadOnly, project string) Manager {
	return &manager{cfg: cfg, project: project}
}

func (m *manager) Cache() Volume {
	return Volume{Label: "Cache", Path: m.cfg.GetCacheDir()}
}

func (m *manager) Work() Volume {
	return Volume{Label: "Work", Path: m.cfg.GetWorkDir()}
}

func (m *manager) Output() Volume {
	return Volume{Label: "Output", Path: m.cfg.GetOutputDir(m.project)}
}

// Volumes returns cache, work and output in that order.
func (m *manager) Volumes() []Volume {
	return []Volume{m.Cache(), m.Work(), m.Output()}
}

// Ensure creates the volumes that are missing.
func (m *manager) Ensure() error {
	for _, v := range m.Volumes() {
		if err := Ensure(v.Path); err != nil {
			return err
		}
		slog.Debug("Volume ready", "volume", v.Label, "path", v.Path)
	}
	return nil
}

// CacheStats scans the package cache.
func (m *manager) CacheStats() (Stats, error) {
	return DirStats(m.cfg.GetCacheDir())
}

// CacheInfo reports the number of cached packages and the cache size.
func (m *manager) CacheInfo() (*common.ExecutionResult, error) {
	s, err := m.CacheStats()
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache: %w", err)
	}
	return common.Success(&common.Output{
		KV: []common.KV{
			{Key: "Cache", Value: m.cfg.GetCacheDir()},
			{Key: "Packages", Value: fmt.Sprintf("%d", s.Packages)},
			{Key: "Files", Value: fmt.Sprintf("%d", s.Files)},
			{Key: "Size", Value: FormatSize(s.Size)},
		},
	}), nil
}

// Info lists every volume with its size and file count.
func (m *manager) Info() (*common.ExecutionResult, error) {
	table := &common.Table{
		Header: []string{"Volume", "Size", "Files", "Path"},
	}
	var total int64
	for _, v := range m.Volumes() {
		s, err := DirStats(v.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", v.Path, err)
		}
		total += s.Size
		table.Rows = append(table.Rows, []string{v.Label, FormatSize(s.Size), fmt.Sprintf("%d", s.Files), v.Path})
	}
	return common.Success(&common.Output{
		Table:   table,
		Message: fmt.Sprintf("Total: %s", FormatSize(total)),
	}), nil
}

func (m *manager) ClearCache() (*common.ExecutionResult, error) {
	return m.clear(m.Cache())
}

func (m *manager) ClearWork() (*common.ExecutionResult, error) {
	return m.clear(m.Work())
}

func (m *manager) clear(v Volume) (*common.ExecutionResult, error) {
	existed, err := Clear(v.Path)
	if err != nil {
		return nil, err
	}
	if !existed {
		slog.Info("Directory doesn't exist", "volume", v.Label, "path", v.Path)
		return common.Success(&common.Output{Message: fmt.Sprintf("%s directory doesn't exist", v.Label)}), nil
	}
	slog.Info("Cleaning", "volume", v.Label, "path", v.Path)
	return common.Success(&common.Output{Message: fmt.Sprintf("%s directory cleared", v.Label)}), nil
}
