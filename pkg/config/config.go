// Package config manages the workspace layout and the runtime settings of
// isoforge. Project files and build logs follow the XDG base directory
// specification, the persistent build volumes live in the workspace.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	DefaultRuntime = "docker"
	DefaultImage   = "archiso-builder"

	cacheDirName = "pacman_cache"
	workDirName  = "archiso_work"
)

// Environment overrides read by Init.
const (
	EnvRuntime   = "ISOFORGE_RUNTIME"
	EnvImage     = "ISOFORGE_IMAGE"
	EnvWorkspace = "ISOFORGE_WORKSPACE"
)

// ReadOnly defines the read-only interface for Config.
// Immutable
type ReadOnly interface {
	GetWorkspace() string
	GetConfigDir() string
	GetStateDir() string
	GetLogDir() string
	GetCacheDir() string
	GetWorkDir() string
	GetOutputDir(project string) string
	GetProjectFile(project string) string
	GetRuntime() string
	GetImage() string
	Freeze()
	Checkout() Writable
}

// Writable defines the writable interface for Config.
// Mutable
type Writable interface {
	ReadOnly
	SetWorkspace(string)
	SetConfigDir(string)
	SetStateDir(string)
	SetRuntime(string)
	SetImage(string)
}

// Config holds the workspace layout and the container runtime settings.
// The persistent volumes live in the workspace, project files and build
// logs in the XDG directories.
// Mutable
type Config struct {
	workspace string
	configDir string
	stateDir  string

	cacheDir string
	workDir  string
	logDir   string

	runtime string
	image   string

	frozen bool
	edited bool
}

var _ ReadOnly = (*Config)(nil)
var _ Writable = (*Config)(nil)

func (c *Config) GetWorkspace() string { return c.workspace }
func (c *Config) GetConfigDir() string { return c.configDir }
func (c *Config) GetStateDir() string  { return c.stateDir }
func (c *Config) GetLogDir() string    { return c.logDir }
func (c *Config) GetCacheDir() string  { return c.cacheDir }
func (c *Config) GetWorkDir() string   { return c.workDir }
func (c *Config) GetRuntime() string   { return c.runtime }
func (c *Config) GetImage() string     { return c.image }

// GetOutputDir is the directory the finished image of project lands in.
func (c *Config) GetOutputDir(project string) string {
	return filepath.Join(c.workspace, project)
}

// GetProjectFile is the default save location of project.
func (c *Config) GetProjectFile(project string) string {
	return filepath.Join(c.configDir, project+".json")
}

func (c *Config) mustEdit() {
	if c.frozen {
		panic("cannot modify frozen config")
	}
}

func (c *Config) SetWorkspace(s string) {
	c.mustEdit()
	c.workspace = s
	c.updateDerived()
}

func (c *Config) SetConfigDir(s string) {
	c.mustEdit()
	c.configDir = s
	c.updateDerived()
}

func (c *Config) SetStateDir(s string) {
	c.mustEdit()
	c.stateDir = s
	c.updateDerived()
}

func (c *Config) SetRuntime(s string) {
	c.mustEdit()
	c.runtime = s
}

func (c *Config) SetImage(s string) {
	c.mustEdit()
	c.image = s
}

func (c *Config) Freeze() {
	c.frozen = true
}

func (c *Config) Checkout() Writable {
	if c.frozen {
		panic("cannot checkout from frozen config")
	}
	if c.edited {
		panic("config already checked out")
	}
	c.edited = true
	return c
}

func (c *Config) updateDerived() {
	c.cacheDir = filepath.Join(c.workspace, cacheDirName)
	c.workDir = filepath.Join(c.workspace, workDirName)
	c.logDir = filepath.Join(c.stateDir, "logs")
}

// Init builds the configuration from the current directory, the XDG base
// directories and the ISOFORGE_* environment. getenv is os.Getenv outside
// of tests.
func Init(getenv func(string) string) (ReadOnly, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	workspace := getenv(EnvWorkspace)
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		workspace = wd
	}
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}

	c := &Config{
		workspace: workspace,
		configDir: filepath.Join(xdg.ConfigHome, "isoforge"),
		stateDir:  filepath.Join(xdg.StateHome, "isoforge"),
		runtime:   DefaultRuntime,
		image:     DefaultImage,
	}
	if v := getenv(EnvRuntime); v != "" {
		c.runtime = v
	}
	if v := getenv(EnvImage); v != "" {
		c.image = v
	}

	c.updateDerived()
	return c, nil
}
