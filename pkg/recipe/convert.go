package recipe

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
)

// fromStarlark converts a Starlark value to a plain Go value as produced by
// encoding/json.
func fromStarlark(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.String:
		return string(x), nil
	case starlark.Int:
		i, ok := x.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", x)
		}
		return i, nil
	case starlark.Float:
		return float64(x), nil
	case starlark.Indexable:
		list := make([]any, 0, x.Len())
		for i := 0; i < x.Len(); i++ {
			val, err := fromStarlark(x.Index(i))
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]any, x.Len())
		for _, item := range x.Items() {
			k, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key %s is not a string", item[0])
			}
			val, err := fromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(k)] = val
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("cannot convert %s to a plain value", v.Type())
	}
}

// toStarlark converts a plain Go value to Starlark. Map keys are inserted in
// sorted order so iteration in scripts is deterministic.
func toStarlark(v any) starlark.Value {
	switch x := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(x)
	case string:
		return starlark.String(x)
	case float64:
		if x == float64(int64(x)) {
			return starlark.MakeInt64(int64(x))
		}
		return starlark.Float(x)
	case int64:
		return starlark.MakeInt64(x)
	case int:
		return starlark.MakeInt(x)
	case []string:
		list := make([]starlark.Value, 0, len(x))
		for _, s := range x {
			list = append(list, starlark.String(s))
		}
		return starlark.NewList(list)
	case []any:
		list := make([]starlark.Value, 0, len(x))
		for _, item := range x {
			list = append(list, toStarlark(item))
		}
		return starlark.NewList(list)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dict := starlark.NewDict(len(x))
		for _, k := range keys {
			dict.SetKey(starlark.String(k), toStarlark(x[k]))
		}
		return dict
	default:
		return starlark.None
	}
}
