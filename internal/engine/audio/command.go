// Package audio owns the process's single audio mixer: decoding
// files, slicing and looping them, running volume ramps for fades and
// level changes, and reporting playback progress back as events.
package audio

import "github.com/bbernstein/sbsp-go/internal/model"

// PlayData is everything needed to start one instance of a sound,
// carried in from the resolved Cue by the Executor.
type PlayData struct {
	Target     string
	Master     float64 // dB
	StartTime  *float64
	EndTime    *float64
	FadeIn     *model.FadeParam
	FadeOut    *model.FadeParam
	LoopRegion *model.LoopRegion
}

// EventKind is the wire-format tag for an engine Event.
type EventKind string

const (
	EventStarted   EventKind = "STARTED"
	EventProgress  EventKind = "PROGRESS"
	EventPaused    EventKind = "PAUSED"
	EventResumed   EventKind = "RESUMED"
	EventCompleted EventKind = "COMPLETED"
	EventError     EventKind = "ERROR"
)

// Event is one asynchronous notification the engine emits for an
// instance it is tracking. The Executor translates these into
// cue-addressed ExecutorEvents.
type Event struct {
	Kind       EventKind
	InstanceID model.InstanceID
	Position   float64 // seconds
	Duration   float64 // seconds
	Message    string
}
