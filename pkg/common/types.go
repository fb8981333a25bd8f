// Package common provides the result types handlers hand back to the CLI
// for rendering.
package common

// ExecutionResult represents the outcome of an isoforge command.
type ExecutionResult struct {
	// ExitCode is the process exit status.
	ExitCode int
	// Output is rendered by the display when not nil.
	Output *Output
}

// Output is structured command output.
type Output struct {
	// Message is printed first, on its own line.
	Message string
	// KV pairs are printed aligned, one per line.
	KV []KV
	// Table is printed last.
	Table *Table
	// Text is printed verbatim after everything else, e.g. a build plan.
	Text string
}

// KV is one labelled value.
type KV struct {
	Key   string
	Value string
}

// Table is a header plus rows of cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Success returns a zero exit result carrying out.
func Success(out *Output) *ExecutionResult {
	return &ExecutionResult{ExitCode: 0, Output: out}
}
