package archway

import "github.com/google/uuid"

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562), used
// for message IDs, workflow IDs, and tool-call IDs throughout the framework.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
