// Package controller is the sole writer of ShowState: it accepts
// operator commands, dispatches cues to the Executor, and folds
// Executor events into the active-cues table that the API layer
// reads.
package controller

import (
	"fmt"
	"log"
	"sync"

	"github.com/bbernstein/sbsp-go/internal/bus"
	"github.com/bbernstein/sbsp-go/internal/event"
	"github.com/bbernstein/sbsp-go/internal/executor"
	"github.com/bbernstein/sbsp-go/internal/model"
)

// ModelSource is the read-only view of the show the Controller needs:
// whether a cue exists, and which cue the playback cursor should
// start on. *manager.Manager implements it.
type ModelSource interface {
	FindCue(id model.CueID) (model.Cue, bool)
	FirstCueID() (model.CueID, bool)
}

// Executor is the subset of *executor.Executor the Controller drives.
type Executor interface {
	Events() <-chan executor.Event
	ExecuteCue(cueID model.CueID)
	StopAll(fadeOutSeconds float64)
}

// Controller is the sole writer of ShowState (spec.md §3 invariant 4).
type Controller struct {
	models   ModelSource
	executor Executor
	bus      *bus.Bus

	mu    sync.Mutex
	state model.ShowState

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New constructs a Controller. If the show has at least one cue, the
// playback cursor initializes to the first cue, per spec.md §4.3.
func New(models ModelSource, x Executor, b *bus.Bus) *Controller {
	state := model.NewShowState()
	if id, ok := models.FirstCueID(); ok {
		state.PlaybackCursor = &id
	}
	return &Controller{
		models:   models,
		executor: x,
		bus:      b,
		state:    state,
	}
}

// Start begins folding Executor events into ShowState.
func (c *Controller) Start() {
	c.stopChan = make(chan struct{})
	c.wg.Add(1)
	go c.run()
}

// Close stops the fold loop and waits for it to exit.
func (c *Controller) Close() {
	close(c.stopChan)
	c.wg.Wait()
}

func (c *Controller) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopChan:
			return
		case ev, ok := <-c.executor.Events():
			if !ok {
				return
			}
			c.handleExecutorEvent(ev)
		}
	}
}

// Go dispatches the cue currently under the playback cursor and fails
// if the cursor is unset. Advancing the cursor on Completed is a
// documented future behavior (spec.md §9); today Go always re-fires
// whatever cue the cursor names.
func (c *Controller) Go() error {
	c.mu.Lock()
	cursor := c.state.PlaybackCursor
	c.mu.Unlock()
	if cursor == nil {
		return fmt.Errorf("controller: Go: no cue under the playback cursor")
	}
	c.executor.ExecuteCue(*cursor)
	return nil
}

// GoFromCue dispatches cueID directly if it exists in the current
// show; otherwise it logs and drops, per spec.md §4.3.
func (c *Controller) GoFromCue(cueID model.CueID) {
	if _, ok := c.models.FindCue(cueID); !ok {
		log.Printf("controller: GoFromCue: cue %s not found", cueID)
		return
	}
	c.executor.ExecuteCue(cueID)
}

// StopAll issues a zero-duration fade-out to every active audio
// instance and cancels pending Wait timers, then clears active_cues
// without moving the playback cursor, per the supplemented StopAll
// semantics.
func (c *Controller) StopAll() {
	c.executor.StopAll(0)

	c.mu.Lock()
	c.state.ActiveCues = make(map[model.CueID]model.ActiveCue)
	snapshot := c.state.Clone()
	c.mu.Unlock()

	c.bus.PublishState(snapshot)
}

// ClearError removes an ActiveCue in Error status, resolving spec.md
// §9 Open Question 3. It is a no-op for any cue not currently in
// Error.
func (c *Controller) ClearError(cueID model.CueID) {
	c.mu.Lock()
	ac, ok := c.state.ActiveCues[cueID]
	if !ok || ac.Status != model.CueStatusError {
		c.mu.Unlock()
		return
	}
	delete(c.state.ActiveCues, cueID)
	snapshot := c.state.Clone()
	c.mu.Unlock()

	c.bus.PublishState(snapshot)
}

// State returns a deep copy of the current ShowState, mainly for the
// API layer's one-shot full-state endpoint.
func (c *Controller) State() model.ShowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) handleExecutorEvent(ev executor.Event) {
	var uiEvent *event.UiEvent

	c.mu.Lock()
	switch ev.Kind {
	case executor.EventStarted:
		c.state.ActiveCues[ev.CueID] = model.ActiveCue{CueID: ev.CueID, Status: model.CueStatusPlaying}
		e := event.CueStarted(ev.CueID)
		uiEvent = &e

	case executor.EventProgress:
		ac := c.state.ActiveCues[ev.CueID]
		ac.CueID = ev.CueID
		ac.Position = ev.Position
		ac.Duration = ev.Duration
		ac.Status = model.CueStatusPlaying
		c.state.ActiveCues[ev.CueID] = ac

	case executor.EventPaused:
		ac, existed := c.state.ActiveCues[ev.CueID]
		wasPaused := existed && ac.Status == model.CueStatusPaused
		ac.CueID = ev.CueID
		ac.Position = ev.Position
		ac.Duration = ev.Duration
		ac.Status = model.CueStatusPaused
		c.state.ActiveCues[ev.CueID] = ac
		if !wasPaused {
			e := event.CuePaused(ev.CueID)
			uiEvent = &e
		}

	case executor.EventResumed:
		if ac, ok := c.state.ActiveCues[ev.CueID]; ok && ac.Status != model.CueStatusPlaying {
			ac.Status = model.CueStatusPlaying
			c.state.ActiveCues[ev.CueID] = ac
			e := event.CueResumed(ev.CueID)
			uiEvent = &e
		}

	case executor.EventCompleted:
		delete(c.state.ActiveCues, ev.CueID)
		e := event.CueCompleted(ev.CueID)
		uiEvent = &e

	case executor.EventError:
		ac := c.state.ActiveCues[ev.CueID]
		ac.CueID = ev.CueID
		ac.Status = model.CueStatusError
		c.state.ActiveCues[ev.CueID] = ac
		e := event.CueError(ev.CueID, ev.Message)
		uiEvent = &e
	}
	snapshot := c.state.Clone()
	c.mu.Unlock()

	// Publish order is mutate -> snapshot publish -> event broadcast,
	// so a UiEvent's recipient always sees a ShowState that already
	// reflects it.
	c.bus.PublishState(snapshot)
	if uiEvent != nil {
		c.bus.PublishEvent(*uiEvent)
	}
}
