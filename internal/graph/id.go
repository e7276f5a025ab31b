package graph

import (
	"time"

	"github.com/google/uuid"
)

// ID identifies a node for its whole life, across renames and rebuilds.
type ID string

const idTimeLayout = "20060102150405"

// NewID returns a fresh id made of the current local time (seconds) and a
// short random suffix. taken, when non-nil, reports ids already in use; a new
// suffix is drawn until it returns false.
func NewID(taken func(ID) bool) ID {
	stamp := time.Now().Format(idTimeLayout)
	for {
		suffix := uuid.NewString()[:8]
		id := ID(stamp + "-" + suffix)
		if taken == nil || !taken(id) {
			return id
		}
	}
}

func (id ID) String() string { return string(id) }
