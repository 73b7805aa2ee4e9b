// SPDX-License-Identifier: Apache-2.0

package etl

import (
	"errors"
	"fmt"
)

// PipelineError attributes a failure to the pipeline it happened in.
type PipelineError struct {
	Pipeline string
	Err      error
}

func NewPipelineError(pipeline string, err error) *PipelineError {
	return &PipelineError{Pipeline: pipeline, Err: err}
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %q: %v", e.Pipeline, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Errors collects the pipeline failures of one run phase. Dimension
// pipelines can run concurrently, so a phase can fail for more than one
// pipeline at a time.
type Errors struct {
	Pipelines []*PipelineError
}

func (e *Errors) Error() string {
	errs := make([]error, 0, len(e.Pipelines))
	for _, pipelineErr := range e.Pipelines {
		errs = append(errs, pipelineErr)
	}
	return errors.Join(errs...).Error()
}

func (e *Errors) Unwrap() []error {
	errs := make([]error, 0, len(e.Pipelines))
	for _, pipelineErr := range e.Pipelines {
		errs = append(errs, pipelineErr)
	}
	return errs
}

func (e *Errors) IsPipelineError(pipeline string) bool {
	for _, pipelineErr := range e.Pipelines {
		if pipelineErr.Pipeline == pipeline {
			return true
		}
	}
	return false
}
