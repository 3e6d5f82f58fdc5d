package sync

import "errors"

// ErrCanceled is returned when a progress callback stops the run.
var ErrCanceled = errors.New("sync canceled")

// StepError identifies the pipeline step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the step name carried by err, or "".
func FailedStep(err error) string {
	var serr *StepError
	if errors.As(err, &serr) {
		return serr.Step
	}
	return ""
}
