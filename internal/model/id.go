package model

import "github.com/google/uuid"

// CueID is the stable 128-bit identifier assigned to a cue at
// authoring time.
type CueID = uuid.UUID

// InstanceID is the 128-bit identifier minted for one runtime
// execution of a cue. It is time-ordered (UUIDv7) so that launch order
// is recoverable from the id alone, which matters when a cue is
// retriggered while a previous instance is still fading out — the two
// instances must be distinguishable and diagnostically orderable.
type InstanceID = uuid.UUID

// NewCueID mints a fresh cue identifier at authoring time.
func NewCueID() CueID {
	return uuid.New()
}

// NewInstanceID mints a fresh, time-ordered instance identifier.
func NewInstanceID() InstanceID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the global random source is broken;
		// fall back to a random v4 rather than propagating a panic
		// into a dispatch path.
		return uuid.New()
	}
	return id
}
