package model

import "github.com/google/uuid"

// CueSequence governs what happens after a cue completes. The core
// executes every cue as DoNotContinue; AutoContinue/AutoFollow are
// reserved for the auto-follow engine described in spec.md §9.
type CueSequence string

const (
	SequenceDoNotContinue CueSequence = "DO_NOT_CONTINUE"
	SequenceAutoContinue  CueSequence = "AUTO_CONTINUE"
	SequenceAutoFollow    CueSequence = "AUTO_FOLLOW"
)

// CueParam is the closed set of action kinds a Cue can carry. It is a
// tagged variant on the wire (`type` + `params`); in Go it is modeled
// as a small sum type via a marker method rather than an open
// interface, since the set of kinds is fixed and serialization-shaped.
type CueParam interface {
	cueParamKind() string
}

// ParamKind returns the wire-format "type" tag for a CueParam.
func ParamKind(p CueParam) string {
	if p == nil {
		return ""
	}
	return p.cueParamKind()
}

const (
	KindAudio = "audio"
	KindWait  = "wait"
	KindMidi  = "midi"
	KindOsc   = "osc"
	KindGroup = "group"
)

// AudioLevels holds the static level(s) applied to an audio cue.
type AudioLevels struct {
	// Master is the overall output level in decibels.
	Master float64
}

// FadeParam describes a volume ramp: how long it takes and what curve
// it follows.
type FadeParam struct {
	Duration float64 // seconds
	Easing   Easing
}

// LoopRegion marks a [start,end) window (seconds, relative to the
// sliced clip) that repeats once reached, until the instance is
// stopped.
type LoopRegion struct {
	Start float64
	End   float64
}

// AudioParam is the Audio cue action: play a file, optionally sliced,
// faded, and looped.
type AudioParam struct {
	Target     string
	StartTime  *float64
	FadeIn     *FadeParam
	EndTime    *float64
	FadeOut    *FadeParam
	Levels     AudioLevels
	LoopRegion *LoopRegion
}

func (AudioParam) cueParamKind() string { return KindAudio }

// WaitParam is the Wait cue action: a pure timing cue with no engine
// contact.
type WaitParam struct {
	Duration float64 // seconds
}

func (WaitParam) cueParamKind() string { return KindWait }

// MidiParam, OscParam and GroupParam are reserved placeholders for
// future cue kinds named in spec.md §3. They exist so CueParam's wire
// tag space is already reserved: the show-file and websocket decoders
// build them from their "type" tags, but the executor does not run
// them (spec.md Non-goals: "MIDI/OSC output (placeholders only)").
type MidiParam struct{}

func (MidiParam) cueParamKind() string { return KindMidi }

type OscParam struct{}

func (OscParam) cueParamKind() string { return KindOsc }

type GroupParam struct {
	CueIDs []uuid.UUID
}

func (GroupParam) cueParamKind() string { return KindGroup }

// Cue is a single authored action in the show.
type Cue struct {
	ID       uuid.UUID
	Number   string
	Name     string
	Notes    string
	PreWait  float64
	PostWait float64
	Sequence CueSequence
	Param    CueParam
}

// Clone returns a deep-enough copy of the cue so callers holding a
// ShowModel read guard can share Cue values without the manager's
// write path mutating them out from under a reader.
func (c Cue) Clone() Cue {
	clone := c
	switch p := c.Param.(type) {
	case AudioParam:
		cp := p
		if p.StartTime != nil {
			v := *p.StartTime
			cp.StartTime = &v
		}
		if p.EndTime != nil {
			v := *p.EndTime
			cp.EndTime = &v
		}
		if p.FadeIn != nil {
			v := *p.FadeIn
			cp.FadeIn = &v
		}
		if p.FadeOut != nil {
			v := *p.FadeOut
			cp.FadeOut = &v
		}
		if p.LoopRegion != nil {
			v := *p.LoopRegion
			cp.LoopRegion = &v
		}
		clone.Param = cp
	case GroupParam:
		cp := p
		cp.CueIDs = append([]uuid.UUID(nil), p.CueIDs...)
		clone.Param = cp
	default:
		clone.Param = p
	}
	return clone
}
