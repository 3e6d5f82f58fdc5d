package sync

// ProgressEvent is emitted when a pipeline step starts and when the run ends.
type ProgressEvent struct {
	Step    string
	Message string
}

// ProgressCallback receives progress events. Returning an error cancels
// the run before the next step.
type ProgressCallback func(event ProgressEvent) error
