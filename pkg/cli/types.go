package cli

import (
	"context"
	"fmt"
	"time"

	"isoforge/pkg/common"
)

// ExecutionResult is what a command hands back to main.
type ExecutionResult = common.ExecutionResult

type Flag struct {
	Name  string
	Short string
	Type  string // "bool", "string"
	Desc  string
}

type Arg struct {
	Name string
	Type string
	Desc string
}

type Command struct {
	Name     string
	Desc     string
	Args     []*Arg
	Flags    []*Flag
	Subs     []*Command
	Parent   *Command
	Examples []string
}

type Topic struct {
	Name string
	Desc string
	Text string
}

// Invocation is a parsed command line.
type Invocation struct {
	Command *Command
	Args    map[string]string
	Flags   map[string]any
	Global  map[string]any
}

// Bool returns a boolean command or global flag.
func (inv *Invocation) Bool(name string) bool {
	if v, ok := inv.Flags[name].(bool); ok {
		return v
	}
	v, _ := inv.Global[name].(bool)
	return v
}

// String returns a string command or global flag, empty when unset.
func (inv *Invocation) String(name string) string {
	if v, ok := inv.Flags[name].(string); ok {
		return v
	}
	v, _ := inv.Global[name].(string)
	return v
}

// Duration parses a string flag as a duration. Unset means zero.
func (inv *Invocation) Duration(name string) (time.Duration, error) {
	s := inv.String(name)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d, nil
}

type Handler interface {
	Execute(ctx context.Context, inv *Invocation) (*ExecutionResult, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, inv *Invocation) (*ExecutionResult, error)

func (f HandlerFunc) Execute(ctx context.Context, inv *Invocation) (*ExecutionResult, error) {
	return f(ctx, inv)
}
