package display

import "isoforge/pkg/common"

// Task represents a unit of work that can be monitored.
type Task interface {
	// Log adds a log message associated with this task.
	Log(msg string)
	// SetStage updates the current stage of the task (e.g. "Image", "Run")
	// and the target being worked on.
	SetStage(name string, target string)
	// Done marks the task as completed.
	// It is the responsibility of the caller who created the task via StartTask.
	Done()
}

// Display handles operator facing output.
type Display interface {
	// StartTask creates and returns a new tracked Task.
	StartTask(name string) Task
	// Log adds a direct log message, shown in verbose mode only.
	Log(msg string)
	// Print adds a primary output message.
	Print(msg string)
	// RenderOutput prints structured command output.
	RenderOutput(out *common.Output)
	// SetVerbose enables or disables verbose logging.
	SetVerbose(v bool)
	// Close cleans up any resources and ensures final output is rendered.
	Close()
}
