package executor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bbernstein/sbsp-go/internal/engine/audio"
	"github.com/bbernstein/sbsp-go/internal/model"
)

type fakeModelSource struct {
	cues map[model.CueID]model.Cue
}

func (f *fakeModelSource) FindCue(id model.CueID) (model.Cue, bool) {
	c, ok := f.cues[id]
	return c, ok
}

type fakeAudioEngine struct {
	events chan audio.Event

	mu       sync.Mutex
	played   []model.InstanceID
	stopped  []model.InstanceID
	playErr  error
}

func newFakeAudioEngine() *fakeAudioEngine {
	return &fakeAudioEngine{events: make(chan audio.Event, 16)}
}

func (f *fakeAudioEngine) Events() <-chan audio.Event { return f.events }

func (f *fakeAudioEngine) Play(instanceID model.InstanceID, data audio.PlayData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.played = append(f.played, instanceID)
	return nil
}

func (f *fakeAudioEngine) Stop(instanceID model.InstanceID, fadeOutSeconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, instanceID)
	return nil
}

func waitForEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for executor event")
		return Event{}
	}
}

func TestExecuteCue_UnknownCueIsDroppedSilently(t *testing.T) {
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{}}
	engine := newFakeAudioEngine()
	x := New(models, engine)
	x.Start()
	defer x.Close()

	x.ExecuteCue(model.NewCueID()) // must not panic or emit anything

	select {
	case e := <-x.Events():
		t.Fatalf("expected no event for unknown cue, got %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExecuteCue_WaitCueEmitsStartedThenCompleted(t *testing.T) {
	cueID := model.NewCueID()
	cue := model.Cue{ID: cueID, Param: model.WaitParam{Duration: 0.02}}
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: cue}}
	engine := newFakeAudioEngine()
	x := New(models, engine)
	x.Start()
	defer x.Close()

	x.ExecuteCue(cueID)

	started := waitForEvent(t, x.Events())
	if started.Kind != EventStarted || started.CueID != cueID {
		t.Fatalf("unexpected first event: %+v", started)
	}
	completed := waitForEvent(t, x.Events())
	if completed.Kind != EventCompleted || completed.CueID != cueID {
		t.Fatalf("unexpected second event: %+v", completed)
	}
}

func TestExecuteCue_AudioCuePlaysAndTranslatesEvents(t *testing.T) {
	cueID := model.NewCueID()
	cue := model.Cue{ID: cueID, Param: model.AudioParam{Target: "clip.wav", Levels: model.AudioLevels{Master: -6}}}
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: cue}}
	engine := newFakeAudioEngine()
	x := New(models, engine)
	x.Start()
	defer x.Close()

	x.ExecuteCue(cueID)

	deadline := time.After(time.Second)
	for {
		engine.mu.Lock()
		n := len(engine.played)
		engine.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for Play to be called")
		case <-time.After(time.Millisecond):
		}
	}

	engine.mu.Lock()
	instanceID := engine.played[0]
	engine.mu.Unlock()

	engine.events <- audio.Event{Kind: audio.EventStarted, InstanceID: instanceID}
	started := waitForEvent(t, x.Events())
	if started.Kind != EventStarted || started.CueID != cueID {
		t.Fatalf("unexpected translated event: %+v", started)
	}

	engine.events <- audio.Event{Kind: audio.EventProgress, InstanceID: instanceID, Position: 1.5, Duration: 10}
	progress := waitForEvent(t, x.Events())
	if progress.Kind != EventProgress || progress.Position != 1.5 || progress.Duration != 10 {
		t.Fatalf("unexpected progress event: %+v", progress)
	}

	engine.events <- audio.Event{Kind: audio.EventCompleted, InstanceID: instanceID}
	completed := waitForEvent(t, x.Events())
	if completed.Kind != EventCompleted || completed.CueID != cueID {
		t.Fatalf("unexpected completed event: %+v", completed)
	}
}

func TestExecuteCue_PlayErrorEmitsErrorEvent(t *testing.T) {
	cueID := model.NewCueID()
	cue := model.Cue{ID: cueID, Param: model.AudioParam{Target: "missing.wav"}}
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: cue}}
	engine := newFakeAudioEngine()
	engine.playErr = errors.New("boom")
	x := New(models, engine)
	x.Start()
	defer x.Close()

	x.ExecuteCue(cueID)

	errEvent := waitForEvent(t, x.Events())
	if errEvent.Kind != EventError || errEvent.CueID != cueID {
		t.Fatalf("unexpected event: %+v", errEvent)
	}
}

func TestHandleEngineEvent_UnknownInstanceIsDropped(t *testing.T) {
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{}}
	engine := newFakeAudioEngine()
	x := New(models, engine)
	x.Start()
	defer x.Close()

	engine.events <- audio.Event{Kind: audio.EventStarted, InstanceID: model.NewInstanceID()}

	select {
	case e := <-x.Events():
		t.Fatalf("expected no event for unknown instance, got %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopAll_CancelsPendingWaitTimer(t *testing.T) {
	cueID := model.NewCueID()
	cue := model.Cue{ID: cueID, Param: model.WaitParam{Duration: 10}}
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: cue}}
	engine := newFakeAudioEngine()
	x := New(models, engine)
	x.Start()
	defer x.Close()

	x.ExecuteCue(cueID)
	started := waitForEvent(t, x.Events())
	if started.Kind != EventStarted {
		t.Fatalf("expected Started, got %+v", started)
	}

	x.StopAll(0)

	select {
	case e := <-x.Events():
		t.Fatalf("expected the cancelled wait to emit no Completed event, got %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopAll_StopsEveryTrackedInstance(t *testing.T) {
	cueID := model.NewCueID()
	cue := model.Cue{ID: cueID, Param: model.AudioParam{Target: "clip.wav"}}
	models := &fakeModelSource{cues: map[model.CueID]model.Cue{cueID: cue}}
	engine := newFakeAudioEngine()
	x := New(models, engine)
	x.Start()
	defer x.Close()

	x.ExecuteCue(cueID)

	deadline := time.After(time.Second)
	for {
		engine.mu.Lock()
		n := len(engine.played)
		engine.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for Play")
		case <-time.After(time.Millisecond):
		}
	}

	x.StopAll(0)

	engine.mu.Lock()
	stopped := len(engine.stopped)
	engine.mu.Unlock()
	if stopped != 1 {
		t.Fatalf("expected 1 stopped instance, got %d", stopped)
	}
}
