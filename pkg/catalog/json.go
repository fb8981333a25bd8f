package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the catalog as a JSON object whose keys keep the
// catalog's category order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range c.categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat.name)
		if err != nil {
			return nil, err
		}
		pkgs := cat.packages
		if pkgs == nil {
			pkgs = []string{}
		}
		val, err := json.Marshal(pkgs)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of category -> package list, keeping
// the key order of the document. A repeated key replaces the earlier list
// but keeps its original position.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		c.categories = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("catalog: expected object, got %v", tok)
	}

	var cats []*category
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("catalog: expected category name, got %v", tok)
		}
		var pkgs []string
		if err := dec.Decode(&pkgs); err != nil {
			return fmt.Errorf("catalog: category '%s': %w", name, err)
		}

		replaced := false
		for _, existing := range cats {
			if existing.name == name {
				existing.packages = pkgs
				replaced = true
				break
			}
		}
		if !replaced {
			cats = append(cats, &category{name: name, packages: pkgs})
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	c.categories = cats
	return nil
}
