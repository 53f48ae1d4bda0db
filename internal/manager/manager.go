// Package manager is the sole writer of the ShowModel: it serves cue
// edits and file persistence commands to completion one at a time,
// emitting a UiEvent on the bus for every accepted or rejected
// command.
package manager

import (
	"sync"

	"github.com/bbernstein/sbsp-go/internal/bus"
	"github.com/bbernstein/sbsp-go/internal/event"
	"github.com/bbernstein/sbsp-go/internal/model"
)

// Manager owns the ShowModel. A single mutex held for the duration of
// each command gives authoring atomicity without exposing
// fine-grained locks to callers, per spec.md §4.4.
type Manager struct {
	bus *bus.Bus

	mu    sync.RWMutex
	model model.ShowModel
	path  string // bound file path; empty until SaveToFile/LoadFromFile succeeds
}

// New returns a Manager with an empty show.
func New(b *bus.Bus) *Manager {
	return &Manager{bus: b, model: model.ShowModel{}}
}

// Snapshot returns a deep copy of the current show, safe to read
// without racing the next edit.
func (m *Manager) Snapshot() model.ShowModel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model.Clone()
}

// FindCue implements executor.ModelSource and controller.ModelSource.
func (m *Manager) FindCue(id model.CueID) (model.Cue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := m.model.FindCue(id)
	if idx < 0 {
		return model.Cue{}, false
	}
	return m.model.Cues[idx].Clone(), true
}

// FirstCueID implements controller.ModelSource.
func (m *Manager) FirstCueID() (model.CueID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.model.Cues) == 0 {
		return model.CueID{}, false
	}
	return m.model.Cues[0].ID, true
}

// CurrentPath returns the file path the show is currently bound to,
// or "" if it has never been saved or loaded.
func (m *Manager) CurrentPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// UpdateCue replaces the cue matching cue.ID, failing if no such cue
// exists.
func (m *Manager) UpdateCue(cue model.Cue) {
	m.mu.Lock()
	idx := m.model.FindCue(cue.ID)
	if idx < 0 {
		m.mu.Unlock()
		m.fail(event.CueEditError(cue.ID, "does not exist"))
		return
	}
	m.model.Cues[idx] = cue.Clone()
	m.mu.Unlock()

	m.publish(event.CueUpdated(cue))
}

// AddCue inserts cue at atIndex, failing if the id is already present
// or atIndex is out of range.
func (m *Manager) AddCue(cue model.Cue, atIndex int) {
	m.mu.Lock()
	if idx := m.model.FindCue(cue.ID); idx >= 0 {
		m.mu.Unlock()
		m.fail(event.CueEditError(cue.ID, "already exists"))
		return
	}
	if atIndex > len(m.model.Cues) {
		m.mu.Unlock()
		m.fail(event.CueEditError(cue.ID, "insertion index out of range"))
		return
	}

	cues := make([]model.Cue, 0, len(m.model.Cues)+1)
	cues = append(cues, m.model.Cues[:atIndex]...)
	cues = append(cues, cue.Clone())
	cues = append(cues, m.model.Cues[atIndex:]...)
	m.model.Cues = cues
	m.mu.Unlock()

	m.publish(event.CueAdded(cue, atIndex))
}

// RemoveCue deletes the cue matching cueID, failing if it is absent.
func (m *Manager) RemoveCue(cueID model.CueID) {
	m.mu.Lock()
	idx := m.model.FindCue(cueID)
	if idx < 0 {
		m.mu.Unlock()
		m.fail(event.CueEditError(cueID, "does not exist"))
		return
	}
	m.model.Cues = append(m.model.Cues[:idx], m.model.Cues[idx+1:]...)
	m.mu.Unlock()

	m.publish(event.CueRemoved(cueID))
}

// MoveCue removes the cue matching cueID and reinserts it at toIndex,
// measured against the cue list after removal.
func (m *Manager) MoveCue(cueID model.CueID, toIndex int) {
	m.mu.Lock()
	idx := m.model.FindCue(cueID)
	if idx < 0 {
		m.mu.Unlock()
		m.fail(event.CueEditError(cueID, "does not exist"))
		return
	}
	cue := m.model.Cues[idx]
	remaining := append(append([]model.Cue{}, m.model.Cues[:idx]...), m.model.Cues[idx+1:]...)
	if toIndex > len(remaining) {
		m.mu.Unlock()
		m.fail(event.CueEditError(cueID, "destination index out of range"))
		return
	}

	cues := make([]model.Cue, 0, len(remaining)+1)
	cues = append(cues, remaining[:toIndex]...)
	cues = append(cues, cue)
	cues = append(cues, remaining[toIndex:]...)
	m.model.Cues = cues
	m.mu.Unlock()

	m.publish(event.CueMoved(cueID, toIndex))
}

// Save writes to the currently-bound path, failing if no path has
// ever been bound by SaveToFile or LoadFromFile.
func (m *Manager) Save() {
	m.mu.RLock()
	path := m.path
	snapshot := m.model.Clone()
	m.mu.RUnlock()

	if path == "" {
		m.fail(event.FileSaveError("", "no file path is set; use SaveToFile first"))
		return
	}
	if err := writeShowFile(path, snapshot); err != nil {
		m.fail(event.FileSaveError(path, err.Error()))
		return
	}
	m.publish(event.ShowModelSaved(path))
}

// SaveToFile writes the show to path and, only on success, binds path
// as the current file.
func (m *Manager) SaveToFile(path string) {
	m.mu.RLock()
	snapshot := m.model.Clone()
	m.mu.RUnlock()

	if err := writeShowFile(path, snapshot); err != nil {
		m.fail(event.FileSaveError(path, err.Error()))
		return
	}

	m.mu.Lock()
	m.path = path
	m.mu.Unlock()

	m.publish(event.ShowModelSaved(path))
}

// LoadFromFile parses path, replaces the in-memory show and, only on
// success, binds path as the current file.
func (m *Manager) LoadFromFile(path string) {
	loaded, err := readShowFile(path)
	if err != nil {
		m.fail(event.FileLoadError(path, err.Error()))
		return
	}

	m.mu.Lock()
	m.model = loaded
	m.path = path
	m.mu.Unlock()

	m.publish(event.ShowModelLoaded(path))
}

func (m *Manager) publish(e event.UiEvent) {
	m.bus.PublishEvent(e)
}

func (m *Manager) fail(opErr event.UiError) {
	m.bus.PublishEvent(event.OperationFailed(opErr))
}
