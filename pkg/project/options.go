package project

import "os"

type options struct {
	indent   string
	fileMode os.FileMode
}

// Option is a functional option for Save.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{indent: "  ", fileMode: 0644}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithIndent sets the indentation string for JSON output.
// Use "" for compact JSON.
// Default is "  " (two spaces).
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

// WithFileMode sets the file permissions of the project file.
// Default is 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		o.fileMode = mode
	}
}
