// Package event defines the tagged-union messages the core publishes
// toward the UI: cue status transitions, document edits, and the
// errors an edit or file operation can fail with.
package event

import "github.com/bbernstein/sbsp-go/internal/model"

// Kind is the wire-format "type" tag for a UiEvent.
type Kind string

const (
	KindCueStarted          Kind = "cueStarted"
	KindCuePaused           Kind = "cuePaused"
	KindCueResumed          Kind = "cueResumed"
	KindCueCompleted        Kind = "cueCompleted"
	KindCueError            Kind = "cueError"
	KindPlaybackCursorMoved Kind = "playbackCursorMoved"
	KindShowModelLoaded     Kind = "showModelLoaded"
	KindShowModelSaved      Kind = "showModelSaved"
	KindCueUpdated          Kind = "cueUpdated"
	KindCueAdded            Kind = "cueAdded"
	KindCueRemoved          Kind = "cueRemoved"
	KindCueMoved            Kind = "cueMoved"
	KindOperationFailed     Kind = "operationFailed"
)

// UiEvent is the closed set of events the bus fans out to websocket
// clients and the history log. Each Kind sets only the typed fields
// its constructor below fills in (for example CueAdded sets Cue, CueID
// and AtIndex); the others keep their zero value and are unused.
type UiEvent struct {
	Kind Kind

	CueID    model.CueID
	Error    string
	Path     string
	Cue      model.Cue
	AtIndex  int
	ToIndex  int
	OpError  UiError
}

func CueStarted(id model.CueID) UiEvent   { return UiEvent{Kind: KindCueStarted, CueID: id} }
func CuePaused(id model.CueID) UiEvent    { return UiEvent{Kind: KindCuePaused, CueID: id} }
func CueResumed(id model.CueID) UiEvent   { return UiEvent{Kind: KindCueResumed, CueID: id} }
func CueCompleted(id model.CueID) UiEvent { return UiEvent{Kind: KindCueCompleted, CueID: id} }

func CueError(id model.CueID, errMsg string) UiEvent {
	return UiEvent{Kind: KindCueError, CueID: id, Error: errMsg}
}

func PlaybackCursorMoved(id model.CueID) UiEvent {
	return UiEvent{Kind: KindPlaybackCursorMoved, CueID: id}
}

func ShowModelLoaded(path string) UiEvent { return UiEvent{Kind: KindShowModelLoaded, Path: path} }
func ShowModelSaved(path string) UiEvent  { return UiEvent{Kind: KindShowModelSaved, Path: path} }

func CueUpdated(c model.Cue) UiEvent { return UiEvent{Kind: KindCueUpdated, Cue: c, CueID: c.ID} }

func CueAdded(c model.Cue, atIndex int) UiEvent {
	return UiEvent{Kind: KindCueAdded, Cue: c, CueID: c.ID, AtIndex: atIndex}
}

func CueRemoved(id model.CueID) UiEvent { return UiEvent{Kind: KindCueRemoved, CueID: id} }

func CueMoved(id model.CueID, toIndex int) UiEvent {
	return UiEvent{Kind: KindCueMoved, CueID: id, ToIndex: toIndex}
}

func OperationFailed(err UiError) UiEvent {
	return UiEvent{Kind: KindOperationFailed, OpError: err}
}

// ErrorKind is the wire-format "type" tag for a UiError.
type ErrorKind string

const (
	ErrorKindFileSave ErrorKind = "fileSave"
	ErrorKindFileLoad ErrorKind = "fileLoad"
	ErrorKindCueEdit  ErrorKind = "cueEdit"
)

// UiError is the closed set of operation failures reported back to
// the UI as an OperationFailed event, rather than as a bare string,
// so a client can react to the failure kind without parsing text.
type UiError struct {
	Kind    ErrorKind
	Path    string
	CueID   model.CueID
	Message string
}

func FileSaveError(path, message string) UiError {
	return UiError{Kind: ErrorKindFileSave, Path: path, Message: message}
}

func FileLoadError(path, message string) UiError {
	return UiError{Kind: ErrorKindFileLoad, Path: path, Message: message}
}

func CueEditError(cueID model.CueID, message string) UiError {
	return UiError{Kind: ErrorKindCueEdit, CueID: cueID, Message: message}
}
