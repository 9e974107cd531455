package services

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces unique record ids.
type IDGenerator func() string

// UUIDv7 generates time-sortable RFC 9562 ids.
func UUIDv7() IDGenerator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Clock returns the current time; tests substitute a fixed one.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
