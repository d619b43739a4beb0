package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run groups a submitted collection of descriptors with its outcomes.
// Runs live in memory only; the destination filesystem is the sole
// durable output of the engine.
type Run struct {
	ID          uuid.UUID            `json:"id"`
	Status      RunStatus            `json:"status"`
	Descriptors []ResourceDescriptor `json:"descriptors"`
	Outcomes    []TaskOutcome        `json:"outcomes,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
