package errors

import (
	"errors"
	"fmt"
)

var (
	ErrExtraction    = errors.New("article extraction failed")
	ErrNormalization = errors.New("article normalization failed")
	ErrLookup        = errors.New("dimension lookup failed")
	ErrLoad          = errors.New("warehouse load failed")
	ErrIntegrity     = errors.New("fact references unknown dimension key")
	ErrSchemaInit    = errors.New("schema initialization failed")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// PipelineError wraps a sentinel error with the pipeline stage that produced
// it. Every PipelineError is fatal to the batch: nothing is committed past the
// failing stage.
type PipelineError struct {
	Err     error
	Stage   string
	Message string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Err.Error(), e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func New(sentinel error, stage string, message string) *PipelineError {
	return &PipelineError{
		Err:     sentinel,
		Stage:   stage,
		Message: message,
	}
}

func Newf(sentinel error, stage string, format string, args ...any) *PipelineError {
	return &PipelineError{
		Err:     sentinel,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// Stage returns the pipeline stage recorded on err, or "unknown" when err
// does not carry one.
func Stage(err error) string {
	var pipeErr *PipelineError
	if errors.As(err, &pipeErr) {
		return pipeErr.Stage
	}
	return "unknown"
}

// IsFatal reports whether err must abort the whole batch. Every core error
// is fatal; only a nil error is not.
func IsFatal(err error) bool {
	return err != nil
}
