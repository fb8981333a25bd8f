package container

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// inspectQuery picks the fields of interest out of `image inspect`, which
// prints a JSON array with one object per image.
const inspectQuery = `.[0] | {id: (.Id // ""), created: (.Created // ""), size: (.Size // 0)}`

var inspectCode *gojq.Code

func init() {
	q, err := gojq.Parse(inspectQuery)
	if err != nil {
		panic(err)
	}
	inspectCode, err = gojq.Compile(q)
	if err != nil {
		panic(err)
	}
}

// parseInspect extracts ImageInfo from the JSON printed by `image inspect`.
func parseInspect(data []byte) (*ImageInfo, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse image inspect output: %w", err)
	}
	if arr, ok := doc.([]any); !ok || len(arr) == 0 {
		return nil, fmt.Errorf("image inspect returned no images")
	}

	iter := inspectCode.Run(doc)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("image inspect query produced no result")
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("image inspect query: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected image inspect result %T", v)
	}

	info := &ImageInfo{}
	info.ID, _ = m["id"].(string)
	info.Created, _ = m["created"].(string)
	switch size := m["size"].(type) {
	case float64:
		info.Size = int64(size)
	case int:
		info.Size = int64(size)
	}
	return info, nil
}
