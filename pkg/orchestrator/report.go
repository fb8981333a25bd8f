package orchestrator

import (
	"fmt"
	"time"

	"isoforge/pkg/artifact"
	"isoforge/pkg/common"
	"isoforge/pkg/container"
	"isoforge/pkg/disk"
)

// Report describes a successful build.
type Report struct {
	Project    string
	Version    string
	Variant    artifact.Variant
	OutputDir  string
	Image      string
	ImageID    string
	ImageBuilt bool
	Cache      disk.Stats
	LogPath    string
	Duration   time.Duration
	Result     container.Result
}

// Output renders the report for the operator.
func (r *Report) Output() *common.Output {
	image := r.Image + " (reused)"
	if r.ImageBuilt {
		image = r.Image + " (built)"
	}
	name := r.Project
	if r.Version != "" {
		name += " v" + r.Version
	}
	kv := []common.KV{
		{Key: "Project", Value: name},
		{Key: "Output", Value: r.OutputDir},
		{Key: "Image", Value: image},
		{Key: "Login", Value: r.Variant.Login()},
		{Key: "Cache", Value: fmt.Sprintf("%d packages, %s", r.Cache.Packages, disk.FormatSize(r.Cache.Size))},
		{Key: "Duration", Value: r.Duration.Round(time.Second).String()},
	}
	if r.LogPath != "" {
		kv = append(kv, common.KV{Key: "Log", Value: r.LogPath})
	}
	return &common.Output{
		Message: "Build completed successfully!",
		KV:      kv,
	}
}
