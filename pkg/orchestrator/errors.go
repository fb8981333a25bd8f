package orchestrator

import (
	"errors"
	"fmt"
)

// ErrPrerequisiteMissing is returned when the container runtime cannot be
// reached. Nothing has been modified when it is returned.
var ErrPrerequisiteMissing = errors.New("container runtime not available")

// Stage names a step of the build pipeline.
type Stage string

const (
	StagePrerequisites Stage = "prerequisites"
	StageVolumes       Stage = "volumes"
	StageImage         Stage = "image"
	StagePlan          Stage = "plan"
	StageRun           Stage = "run"
)

// StageError records which stage of a build failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(s Stage, err error) error {
	return &StageError{Stage: s, Err: err}
}
