package presence

import (
	"time"

	"beacon/cmd/identity/ids"
)

// NewConnectionID returns a ULID used as the connection id for one websocket
// session. ULIDs are unique per open connection and sort by open time, which
// keeps supersession visible in logs.
func NewConnectionID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
