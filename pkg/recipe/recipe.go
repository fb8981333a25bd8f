// Package recipe runs Starlark scripts that customize the package catalog
// before a build. A recipe sees the project through a small set of
// keyword-only builtins and can only change the catalog it was given.
//
//	if project.variant == "headless":
//	    for p in packages(category="gui_kde"):
//	        remove_package(package=p)
//	add_package(category="imaging_tools", package="ddrescue")
package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/itchyny/gojq"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"isoforge/pkg/catalog"
)

// Recipes are plain scripts, loops and conditionals at top level are allowed.
var fileOptions = &syntax.FileOptions{
	TopLevelControl: true,
	GlobalReassign:  true,
	Set:             true,
	While:           true,
}

// Context is the read-only project information exposed as `project`.
type Context struct {
	Name    string
	Version string
	Variant string
}

// Result summarizes what a recipe changed.
type Result struct {
	Added   int
	Removed int
}

// Recipe is a loaded Starlark script.
type Recipe struct {
	Name   string
	Source string
	Print  func(string)
}

// Load reads a recipe from path.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Recipe{Name: name, Source: string(data)}, nil
}

// Apply executes the recipe against cat. On error the catalog may be
// partially modified; callers that need all-or-nothing pass a clone.
func (r *Recipe) Apply(cat *catalog.Catalog, rc Context) (*Result, error) {
	res := &Result{}
	thread := &starlark.Thread{
		Name: r.Name,
		Print: func(thread *starlark.Thread, msg string) {
			if r.Print != nil {
				r.Print(msg)
				return
			}
			slog.Info(msg, "recipe", thread.Name)
		},
	}

	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"json":   starlarkstruct.FromStringDict(starlark.String("json"), jsonBuiltins()),
		"jq":     starlarkstruct.FromStringDict(starlark.String("jq"), jqBuiltins()),
		"project": starlarkstruct.FromStringDict(starlark.String("project"), starlark.StringDict{
			"name":    starlark.String(rc.Name),
			"version": starlark.String(rc.Version),
			"variant": starlark.String(rc.Variant),
		}),
	}
	for k, v := range catalogBuiltins(cat, res) {
		predeclared[k] = v
	}

	if _, err := starlark.ExecFileOptions(fileOptions, thread, r.Name+".star", r.Source, predeclared); err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return res, fmt.Errorf("recipe %s failed:\n%s", r.Name, evalErr.Backtrace())
		}
		return res, fmt.Errorf("recipe %s: %w", r.Name, err)
	}
	slog.Debug("Recipe applied", "recipe", r.Name, "added", res.Added, "removed", res.Removed)
	return res, nil
}

func catalogBuiltins(cat *catalog.Catalog, res *Result) starlark.StringDict {
	return starlark.StringDict{
		"add_package": NewStrictBuiltin(CommandDef{
			Name: "add_package",
			Desc: "Appends a package to a category, creating the category if needed. Returns False if it was already listed.",
			Params: []ParamDef{
				{Name: "category", Type: "string", Desc: "Category name, e.g. imaging_tools"},
				{Name: "package", Type: "string", Desc: "Package name"},
			},
		}, func(_ *starlark.Thread, kwargs map[string]starlark.Value) (starlark.Value, error) {
			err := cat.Add(asString(kwargs["category"]), asString(kwargs["package"]))
			if errors.Is(err, catalog.ErrPackageExists) {
				return starlark.False, nil
			}
			if err != nil {
				return nil, err
			}
			res.Added++
			return starlark.True, nil
		}),
		"remove_package": NewStrictBuiltin(CommandDef{
			Name: "remove_package",
			Desc: "Removes a package from every category listing it. Returns False if no category did.",
			Params: []ParamDef{
				{Name: "package", Type: "string", Desc: "Package name"},
			},
		}, func(_ *starlark.Thread, kwargs map[string]starlark.Value) (starlark.Value, error) {
			_, err := cat.Remove(asString(kwargs["package"]))
			if errors.Is(err, catalog.ErrPackageNotFound) {
				return starlark.False, nil
			}
			if err != nil {
				return nil, err
			}
			res.Removed++
			return starlark.True, nil
		}),
		"categories": NewStrictBuiltin(CommandDef{
			Name: "categories",
			Desc: "Returns the category names in catalog order.",
		}, func(_ *starlark.Thread, _ map[string]starlark.Value) (starlark.Value, error) {
			return toStarlark(cat.Categories()), nil
		}),
		"packages": NewStrictBuiltin(CommandDef{
			Name: "packages",
			Desc: "Returns the packages of a category, an empty list if it does not exist.",
			Params: []ParamDef{
				{Name: "category", Type: "string", Desc: "Category name"},
			},
		}, func(_ *starlark.Thread, kwargs map[string]starlark.Value) (starlark.Value, error) {
			return toStarlark(cat.Packages(asString(kwargs["category"]))), nil
		}),
		"matching": NewStrictBuiltin(CommandDef{
			Name: "matching",
			Desc: "Returns every listed package whose whole name matches a regular expression, in catalog order, without duplicates.",
			Params: []ParamDef{
				{Name: "pattern", Type: "string", Desc: "Regular expression, e.g. plasma-.*"},
			},
		}, func(_ *starlark.Thread, kwargs map[string]starlark.Value) (starlark.Value, error) {
			re, err := CompileAnchored(asString(kwargs["pattern"]))
			if err != nil {
				return nil, err
			}
			return toStarlark(matching(cat, re)), nil
		}),
	}
}

func jsonBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"decode": NewStrictBuiltin(CommandDef{
			Name: "json.decode",
			Desc: "Decodes a JSON string into Starlark values.",
			Params: []ParamDef{
				{Name: "data", Type: "string", Desc: "The JSON string to decode"},
			},
		}, func(_ *starlark.Thread, kwargs map[string]starlark.Value) (starlark.Value, error) {
			var data any
			if err := json.Unmarshal([]byte(asString(kwargs["data"])), &data); err != nil {
				return nil, err
			}
			return toStarlark(data), nil
		}),
		"encode": NewStrictBuiltin(CommandDef{
			Name: "json.encode",
			Desc: "Encodes a Starlark value into a JSON string.",
			Params: []ParamDef{
				{Name: "value", Type: "any", Desc: "The value to encode"},
			},
		}, func(_ *starlark.Thread, kwargs map[string]starlark.Value) (starlark.Value, error) {
			data, err := fromStarlark(kwargs["value"])
			if err != nil {
				return nil, err
			}
			out, err := json.Marshal(data)
			if err != nil {
				return nil, err
			}
			return starlark.String(out), nil
		}),
	}
}

func jqBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"query": NewStrictBuiltin(CommandDef{
			Name: "jq.query",
			Desc: "Runs a jq filter on a value. One result is returned as is, several as a list.",
			Params: []ParamDef{
				{Name: "query", Type: "string", Desc: "The jq filter"},
				{Name: "value", Type: "any", Desc: "The value to query"},
			},
		}, func(_ *starlark.Thread, kwargs map[string]starlark.Value) (starlark.Value, error) {
			data, err := fromStarlark(kwargs["value"])
			if err != nil {
				return nil, err
			}
			// gojq only understands the types encoding/json produces.
			data, err = normalize(data)
			if err != nil {
				return nil, err
			}

			q, err := gojq.Parse(asString(kwargs["query"]))
			if err != nil {
				return nil, err
			}
			iter := q.Run(data)
			var results []starlark.Value
			for {
				v, ok := iter.Next()
				if !ok {
					break
				}
				if err, ok := v.(error); ok {
					return nil, err
				}
				results = append(results, toStarlark(v))
			}
			if len(results) == 1 {
				return results[0], nil
			}
			return starlark.NewList(results), nil
		}),
	}
}

// normalize round-trips v through JSON so numbers become float64.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(data, &out)
	return out, err
}
