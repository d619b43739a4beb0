package domain

// TaskState represents the current state of a fetch task.
type TaskState string

const (
	StateQueued     TaskState = "queued"
	StateFetching   TaskState = "fetching"
	StateVerifying  TaskState = "verifying"
	StateExtracting TaskState = "extracting"
	StateCommitting TaskState = "committing"
	StateSucceeded  TaskState = "succeeded"
	StateFailed     TaskState = "failed"
	StateSkipped    TaskState = "skipped"
)

// Terminal reports whether no further transitions are possible.
func (s TaskState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// RunStatus represents the current state of a submitted run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
)
