package domain

import (
	"time"

	errs "github.com/fetchmill/fetchmill/internal/errors"
)

// TaskOutcome is the terminal result of one fetch task. Index refers back
// to the position of the descriptor in the submitted collection.
type TaskOutcome struct {
	Index            int           `json:"index"`
	State            TaskState     `json:"state"`
	Err              error         `json:"-"`
	Error            string        `json:"error,omitempty"`
	ErrorKind        string        `json:"error_kind,omitempty"`
	BytesTransferred int64         `json:"bytes_transferred"`
	Elapsed          time.Duration `json:"elapsed"`
	Digest           string        `json:"digest,omitempty"`
	ExtractedPaths   []string      `json:"extracted_paths,omitempty"`
	ExtractedBytes   int64         `json:"extracted_bytes,omitempty"`
}

// Finalize fills the serializable error fields from Err.
func (o *TaskOutcome) Finalize() {
	if o.Err == nil {
		return
	}
	o.Error = o.Err.Error()
	o.ErrorKind = errs.KindOf(o.Err).String()
}
