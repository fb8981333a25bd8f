package container

import (
	"fmt"
	"sort"
)

// MountMode selects how a host directory is mounted.
type MountMode = string

const (
	MOUNT_RW MountMode = "rw"
	MOUNT_RO MountMode = "ro"
)

// Mount is one host-to-container volume mapping.
type Mount struct {
	Source string
	Target string
	Mode   MountMode
}

// Invocation is a pending `run` of the container runtime. Mounts and
// environment are keyed so that repeated additions replace, and the
// generated argument list is sorted and therefore stable.
type Invocation struct {
	name    string
	image   string
	mounts  map[string]Mount
	envs    map[string]string
	flags   []string
	command []string
}

// NewInvocation starts an invocation of image.
func NewInvocation(image string) *Invocation {
	return &Invocation{
		image:  image,
		mounts: make(map[string]Mount),
		envs:   make(map[string]string),
	}
}

func (i *Invocation) SetName(name string) {
	i.name = name
}

// Name is the container name, empty when the runtime picks one.
func (i *Invocation) Name() string {
	return i.name
}

func (i *Invocation) Image() string {
	return i.image
}

// AddMount maps host path source to target inside the container. A later
// mount on the same target replaces the earlier one.
func (i *Invocation) AddMount(mode MountMode, source, target string) {
	i.mounts[target] = Mount{Source: source, Target: target, Mode: mode}
}

func (i *Invocation) AddFlag(flag string) {
	i.flags = append(i.flags, flag)
}

func (i *Invocation) SetEnv(name, value string) {
	i.envs[name] = value
}

// SetCommand sets the entrypoint command run in the container.
func (i *Invocation) SetCommand(executable string, args ...string) {
	i.command = append([]string{executable}, args...)
}

// Command returns the entrypoint command.
func (i *Invocation) Command() []string {
	return append([]string(nil), i.command...)
}

// Args returns the runtime arguments, starting with "run".
func (i *Invocation) Args() []string {
	args := []string{"run"}
	args = append(args, i.flags...)
	if i.name != "" {
		args = append(args, "--name", i.name)
	}
	for _, m := range i.MountSlice() {
		spec := m.Source + ":" + m.Target
		if m.Mode == MOUNT_RO {
			spec += ":ro"
		}
		args = append(args, "-v", spec)
	}
	for _, k := range sortedKeys(i.envs) {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, i.envs[k]))
	}
	args = append(args, i.image)
	args = append(args, i.command...)
	return args
}

// MountSlice returns the mounts ordered by target.
func (i *Invocation) MountSlice() []Mount {
	var res []Mount
	for _, key := range sortedKeys(i.mounts) {
		res = append(res, i.mounts[key])
	}
	return res
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
