// Package project persists the project identity and the package catalog as
// a JSON document. Writes are atomic and a failed load never touches the
// caller's state.
package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"isoforge/pkg/catalog"
)

const (
	DefaultName    = "imaging-distro"
	DefaultVersion = "1.0"
)

var (
	ErrNotFound  = errors.New("project file not found")
	ErrMalformed = errors.New("malformed project file")
)

// WriteError is returned when the project file cannot be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write project file %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Document is the on-disk form. Fields missing from a loaded document are
// left at their zero value so the caller can keep what it had.
type Document struct {
	ProjectName string           `json:"project_name,omitempty"`
	Version     string           `json:"version,omitempty"`
	Packages    *catalog.Catalog `json:"packages,omitempty"`
}

// Project is the in-memory project state owned by the orchestrator.
type Project struct {
	Name    string
	Version string
	Catalog *catalog.Catalog
}

// Default returns the built-in project with the default catalog.
func Default() *Project {
	return &Project{
		Name:    DefaultName,
		Version: DefaultVersion,
		Catalog: catalog.Default(),
	}
}

// Document returns the document describing p.
func (p *Project) Document() *Document {
	return &Document{ProjectName: p.Name, Version: p.Version, Packages: p.Catalog}
}

// Apply replaces the parts of p that doc carries.
func (p *Project) Apply(doc *Document) {
	if doc.ProjectName != "" {
		p.Name = doc.ProjectName
	}
	if doc.Version != "" {
		p.Version = doc.Version
	}
	if doc.Packages != nil {
		p.Catalog = doc.Packages
	}
}

// Save writes the document to path atomically: the content goes to a
// temporary file in the same directory which is then renamed over path.
func Save(path string, doc *Document, opts ...Option) error {
	o := newOptions(opts)

	var data []byte
	var err error
	if o.indent != "" {
		data, err = json.MarshalIndent(doc, "", o.indent)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, o.fileMode); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// Load reads the document at path. A missing file yields ErrNotFound and
// content that does not parse yields ErrMalformed.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read project file %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformed, path)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return &doc, nil
}

// PathFor returns the default location of a project file inside dir.
func PathFor(dir, name string) string {
	return filepath.Join(dir, name+".json")
}
