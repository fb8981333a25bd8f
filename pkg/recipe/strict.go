package recipe

import (
	"fmt"
	"slices"
	"strings"

	"go.starlark.net/starlark"
)

// ParamDef defines a single parameter for a strict builtin.
type ParamDef struct {
	Name string
	// Type is "string" or "any". String parameters are type checked.
	Type string
	Desc string
}

// CommandDef defines the schema for a strict builtin function.
type CommandDef struct {
	Name   string
	Desc   string
	Params []ParamDef
}

// StrictAction is the implementation of a strict builtin.
type StrictAction func(thread *starlark.Thread, kwargs map[string]starlark.Value) (starlark.Value, error)

// NewStrictBuiltin creates a Starlark builtin that only takes keyword
// arguments, all of them mandatory.
func NewStrictBuiltin(def CommandDef, action StrictAction) *starlark.Builtin {
	return starlark.NewBuiltin(def.Name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("%s: takes keyword-only arguments\n%s", def.Name, usage(def))
		}

		kwMap := make(map[string]starlark.Value, len(kwargs))
		for _, pair := range kwargs {
			kwMap[string(pair[0].(starlark.String))] = pair[1]
		}

		if err := validateArgs(def, kwMap); err != nil {
			return nil, fmt.Errorf("%s: %w\n%s", def.Name, err, usage(def))
		}
		return action(thread, kwMap)
	})
}

func validateArgs(def CommandDef, kwMap map[string]starlark.Value) error {
	var missing []string
	for _, p := range def.Params {
		v, ok := kwMap[p.Name]
		if !ok {
			missing = append(missing, p.Name)
			continue
		}
		if p.Type == "string" {
			if _, ok := v.(starlark.String); !ok {
				return fmt.Errorf("argument '%s' must be a string, got %s", p.Name, v.Type())
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing mandatory arguments: %v", missing)
	}

	for k := range kwMap {
		if !slices.ContainsFunc(def.Params, func(p ParamDef) bool { return p.Name == k }) {
			return fmt.Errorf("unknown argument '%s'", k)
		}
	}
	return nil
}

func usage(def CommandDef) string {
	var sb strings.Builder
	sb.WriteString("\nDescription:\n  " + def.Desc + "\n")
	if len(def.Params) == 0 {
		sb.WriteString("\nUsage:\n  " + def.Name + "()\n")
		return sb.String()
	}
	sb.WriteString("\nUsage:\n  " + def.Name + "(\n")
	for _, p := range def.Params {
		fmt.Fprintf(&sb, "    %-15s # (%s) %s\n", p.Name+"=", p.Type, p.Desc)
	}
	sb.WriteString("  )\n")
	return sb.String()
}

func asString(v starlark.Value) string {
	if s, ok := v.(starlark.String); ok {
		return string(s)
	}
	if v == nil || v == starlark.None {
		return ""
	}
	return v.String()
}
