package model

// CueStatus is the lifecycle state of a currently-executing cue as
// seen by the operator view.
type CueStatus string

const (
	CueStatusPlaying   CueStatus = "PLAYING"
	CueStatusPaused    CueStatus = "PAUSED"
	CueStatusCompleted CueStatus = "COMPLETED"
	CueStatusError     CueStatus = "ERROR"
)

// ActiveCue is the runtime playback state of a cue currently
// executing, keyed by cue id in ShowState.ActiveCues.
type ActiveCue struct {
	CueID    CueID
	Position float64 // seconds
	Duration float64 // seconds
	Status   CueStatus
}

// ShowState is the published operator view: what the next bare "Go"
// will fire, and what is currently playing. The Controller is its
// sole writer; every mutation is published as a full-snapshot
// replace, never a delta.
type ShowState struct {
	PlaybackCursor *CueID
	ActiveCues     map[CueID]ActiveCue
}

// Clone returns a deep-enough copy for handing to a reader without
// racing the Controller's next mutation.
func (s ShowState) Clone() ShowState {
	clone := ShowState{ActiveCues: make(map[CueID]ActiveCue, len(s.ActiveCues))}
	if s.PlaybackCursor != nil {
		id := *s.PlaybackCursor
		clone.PlaybackCursor = &id
	}
	for id, ac := range s.ActiveCues {
		clone.ActiveCues[id] = ac
	}
	return clone
}

// NewShowState returns an empty ShowState with no cursor and no
// active cues.
func NewShowState() ShowState {
	return ShowState{ActiveCues: make(map[CueID]ActiveCue)}
}
