package controller

import (
	"testing"
	"time"

	"github.com/bbernstein/sbsp-go/internal/bus"
	"github.com/bbernstein/sbsp-go/internal/event"
	"github.com/bbernstein/sbsp-go/internal/executor"
	"github.com/bbernstein/sbsp-go/internal/model"
)

type fakeModelSource struct {
	cues  map[model.CueID]model.Cue
	first *model.CueID
}

func (f *fakeModelSource) FindCue(id model.CueID) (model.Cue, bool) {
	c, ok := f.cues[id]
	return c, ok
}

func (f *fakeModelSource) FirstCueID() (model.CueID, bool) {
	if f.first == nil {
		return model.CueID{}, false
	}
	return *f.first, true
}

type fakeExecutor struct {
	events    chan executor.Event
	executed  []model.CueID
	stopAllFade *float64
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{events: make(chan executor.Event, 16)}
}

func (f *fakeExecutor) Events() <-chan executor.Event { return f.events }

func (f *fakeExecutor) ExecuteCue(cueID model.CueID) {
	f.executed = append(f.executed, cueID)
}

func (f *fakeExecutor) StopAll(fadeOutSeconds float64) {
	f.stopAllFade = &fadeOutSeconds
}

func waitForState(t *testing.T, sub *bus.StateSubscriber) model.ShowState {
	t.Helper()
	select {
	case s := <-sub.Channel():
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state snapshot")
		return model.ShowState{}
	}
}

func waitForUiEvent(t *testing.T, sub *bus.EventSubscriber) event.UiEvent {
	t.Helper()
	select {
	case e := <-sub.Channel():
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for UiEvent")
		return event.UiEvent{}
	}
}

func TestNew_CursorInitializesToFirstCue(t *testing.T) {
	cueID := model.NewCueID()
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: {ID: cueID}}, first: &cueID}
	c := New(models, newFakeExecutor(), bus.New())

	state := c.State()
	if state.PlaybackCursor == nil || *state.PlaybackCursor != cueID {
		t.Fatalf("expected cursor to be %s, got %+v", cueID, state.PlaybackCursor)
	}
}

func TestNew_EmptyShowHasNoCursor(t *testing.T) {
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{}}
	c := New(models, newFakeExecutor(), bus.New())

	if state := c.State(); state.PlaybackCursor != nil {
		t.Fatalf("expected no cursor for an empty show, got %+v", state.PlaybackCursor)
	}
}

func TestGo_FailsWhenCursorUnset(t *testing.T) {
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{}}
	c := New(models, newFakeExecutor(), bus.New())

	if err := c.Go(); err == nil {
		t.Fatal("expected an error when the cursor is unset")
	}
}

func TestGo_DispatchesCursorCue(t *testing.T) {
	cueID := model.NewCueID()
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: {ID: cueID}}, first: &cueID}
	x := newFakeExecutor()
	c := New(models, x, bus.New())

	if err := c.Go(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(x.executed) != 1 || x.executed[0] != cueID {
		t.Fatalf("expected cursor cue to be executed, got %+v", x.executed)
	}
}

func TestGoFromCue_UnknownCueIsDropped(t *testing.T) {
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{}}
	x := newFakeExecutor()
	c := New(models, x, bus.New())

	c.GoFromCue(model.NewCueID())

	if len(x.executed) != 0 {
		t.Fatalf("expected no dispatch for an unknown cue, got %+v", x.executed)
	}
}

func TestGoFromCue_KnownCueDispatches(t *testing.T) {
	cueID := model.NewCueID()
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: {ID: cueID}}}
	x := newFakeExecutor()
	c := New(models, x, bus.New())

	c.GoFromCue(cueID)

	if len(x.executed) != 1 || x.executed[0] != cueID {
		t.Fatalf("expected cue to be executed, got %+v", x.executed)
	}
}

func TestHandleExecutorEvent_StartedInsertsActiveCueAndPublishes(t *testing.T) {
	cueID := model.NewCueID()
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: {ID: cueID}}}
	x := newFakeExecutor()
	b := bus.New()
	c := New(models, x, b)
	stateSub := b.SubscribeState()
	eventSub := b.SubscribeEvents()
	c.Start()
	defer c.Close()

	x.events <- executor.Event{Kind: executor.EventStarted, CueID: cueID}

	state := waitForState(t, stateSub)
	ac, ok := state.ActiveCues[cueID]
	if !ok || ac.Status != model.CueStatusPlaying {
		t.Fatalf("expected an active Playing cue, got %+v", state.ActiveCues)
	}

	uiEvent := waitForUiEvent(t, eventSub)
	if uiEvent.Kind != event.KindCueStarted || uiEvent.CueID != cueID {
		t.Fatalf("unexpected ui event: %+v", uiEvent)
	}
}

func TestHandleExecutorEvent_PausedOnlyEmitsOnceOnTransition(t *testing.T) {
	cueID := model.NewCueID()
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: {ID: cueID}}}
	x := newFakeExecutor()
	b := bus.New()
	c := New(models, x, b)
	eventSub := b.SubscribeEvents()
	stateSub := b.SubscribeState()
	c.Start()
	defer c.Close()

	x.events <- executor.Event{Kind: executor.EventStarted, CueID: cueID}
	waitForState(t, stateSub)
	waitForUiEvent(t, eventSub)

	x.events <- executor.Event{Kind: executor.EventPaused, CueID: cueID, Position: 1, Duration: 10}
	waitForState(t, stateSub)
	paused := waitForUiEvent(t, eventSub)
	if paused.Kind != event.KindCuePaused {
		t.Fatalf("expected CuePaused, got %+v", paused)
	}

	x.events <- executor.Event{Kind: executor.EventPaused, CueID: cueID, Position: 1, Duration: 10}
	waitForState(t, stateSub)
	select {
	case e := <-eventSub.Channel():
		t.Fatalf("expected no duplicate CuePaused event, got %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleExecutorEvent_ErrorMarksStatusWithoutRemoving(t *testing.T) {
	cueID := model.NewCueID()
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: {ID: cueID}}}
	x := newFakeExecutor()
	b := bus.New()
	c := New(models, x, b)
	stateSub := b.SubscribeState()
	c.Start()
	defer c.Close()

	x.events <- executor.Event{Kind: executor.EventStarted, CueID: cueID}
	waitForState(t, stateSub)

	x.events <- executor.Event{Kind: executor.EventError, CueID: cueID, Message: "boom"}
	state := waitForState(t, stateSub)
	ac, ok := state.ActiveCues[cueID]
	if !ok || ac.Status != model.CueStatusError {
		t.Fatalf("expected the cue to remain present with Error status, got %+v", state.ActiveCues)
	}
}

func TestClearError_RemovesOnlyErroredCue(t *testing.T) {
	cueID := model.NewCueID()
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: {ID: cueID}}}
	x := newFakeExecutor()
	b := bus.New()
	c := New(models, x, b)
	stateSub := b.SubscribeState()
	c.Start()
	defer c.Close()

	x.events <- executor.Event{Kind: executor.EventStarted, CueID: cueID}
	waitForState(t, stateSub)
	x.events <- executor.Event{Kind: executor.EventError, CueID: cueID, Message: "boom"}
	waitForState(t, stateSub)

	c.ClearError(cueID)
	state := waitForState(t, stateSub)
	if _, ok := state.ActiveCues[cueID]; ok {
		t.Fatalf("expected the errored cue to be removed, got %+v", state.ActiveCues)
	}
}

func TestClearError_NoOpForNonErrorStatus(t *testing.T) {
	cueID := model.NewCueID()
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: {ID: cueID}}}
	x := newFakeExecutor()
	b := bus.New()
	c := New(models, x, b)
	stateSub := b.SubscribeState()
	c.Start()
	defer c.Close()

	x.events <- executor.Event{Kind: executor.EventStarted, CueID: cueID}
	waitForState(t, stateSub)

	c.ClearError(cueID)

	select {
	case s := <-stateSub.Channel():
		t.Fatalf("expected no snapshot published for a no-op ClearError, got %+v", s)
	case <-time.After(50 * time.Millisecond):
	}

	state := c.State()
	if _, ok := state.ActiveCues[cueID]; !ok {
		t.Fatalf("expected the Playing cue to remain, got %+v", state.ActiveCues)
	}
}

func TestStopAll_ClearsActiveCuesAndKeepsCursor(t *testing.T) {
	cueID := model.NewCueID()
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: {ID: cueID}}, first: &cueID}
	x := newFakeExecutor()
	b := bus.New()
	c := New(models, x, b)
	stateSub := b.SubscribeState()
	c.Start()
	defer c.Close()

	x.events <- executor.Event{Kind: executor.EventStarted, CueID: cueID}
	waitForState(t, stateSub)

	c.StopAll()
	state := waitForState(t, stateSub)

	if len(state.ActiveCues) != 0 {
		t.Fatalf("expected active_cues to be cleared, got %+v", state.ActiveCues)
	}
	if state.PlaybackCursor == nil || *state.PlaybackCursor != cueID {
		t.Fatalf("expected cursor to be untouched, got %+v", state.PlaybackCursor)
	}
	if x.stopAllFade == nil || *x.stopAllFade != 0 {
		t.Fatalf("expected executor.StopAll to be called with fade=0, got %+v", x.stopAllFade)
	}
}
