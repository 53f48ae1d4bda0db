// Package executor dispatches resolved cues to the audio engine (or,
// for Wait cues, a cooperative timer) and translates engine events
// back into cue-addressed events for the Controller.
package executor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bbernstein/sbsp-go/internal/engine/audio"
	"github.com/bbernstein/sbsp-go/internal/model"
)

// ModelSource is the read-only view of the show the Executor needs to
// resolve a cue id at dispatch time. *manager.Manager implements it.
type ModelSource interface {
	FindCue(id model.CueID) (model.Cue, bool)
}

// AudioEngine is the subset of *audio.Engine the Executor drives.
// Declaring it as an interface here, rather than depending on the
// concrete type, lets tests substitute a fake in place of real audio
// output.
type AudioEngine interface {
	Events() <-chan audio.Event
	Play(instanceID model.InstanceID, data audio.PlayData) error
	Stop(instanceID model.InstanceID, fadeOutSeconds float64) error
}

// EventKind is the wire-format tag for an Executor event.
type EventKind string

const (
	EventStarted   EventKind = "STARTED"
	EventProgress  EventKind = "PROGRESS"
	EventPaused    EventKind = "PAUSED"
	EventResumed   EventKind = "RESUMED"
	EventCompleted EventKind = "COMPLETED"
	EventError     EventKind = "ERROR"
)

// Event is a playback notification addressed by cue id, the unit the
// Controller's active_cues table is keyed on.
type Event struct {
	Kind     EventKind
	CueID    model.CueID
	Position float64
	Duration float64
	Message  string
}

// Executor owns the private instance_id -> cue_id map described in
// spec.md §3. It is the only component that ever sees an instance id;
// everything upstream of it is cue-oriented.
type Executor struct {
	models ModelSource
	engine AudioEngine

	mu        sync.Mutex
	instances map[model.InstanceID]model.CueID
	waits     map[model.InstanceID]context.CancelFunc

	events chan Event

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New returns an Executor. Call Start to begin consuming engine
// events; ExecuteCue can be called before Start, but no engine events
// will be translated until the run loop is running.
func New(models ModelSource, engine AudioEngine) *Executor {
	return &Executor{
		models:    models,
		engine:    engine,
		instances: make(map[model.InstanceID]model.CueID),
		waits:     make(map[model.InstanceID]context.CancelFunc),
		events:    make(chan Event, 32),
	}
}

// Events returns the channel the Controller consumes Executor events
// from.
func (x *Executor) Events() <-chan Event { return x.events }

// Start begins translating audio engine events into Executor events.
func (x *Executor) Start() {
	x.stopChan = make(chan struct{})
	x.wg.Add(1)
	go x.run()
}

// Close stops the translation loop and waits for it to exit.
func (x *Executor) Close() {
	close(x.stopChan)
	x.wg.Wait()
}

func (x *Executor) run() {
	defer x.wg.Done()
	for {
		select {
		case <-x.stopChan:
			return
		case ev, ok := <-x.engine.Events():
			if !ok {
				return
			}
			x.handleEngineEvent(ev)
		}
	}
}

// ExecuteCue resolves cue_id from the current show and dispatches it.
// An unknown cue id is logged and dropped, per spec.md §4.2.
func (x *Executor) ExecuteCue(cueID model.CueID) {
	cue, ok := x.models.FindCue(cueID)
	if !ok {
		log.Printf("executor: cannot execute cue %s: not found", cueID)
		return
	}
	x.dispatch(cue)
}

func (x *Executor) dispatch(cue model.Cue) {
	switch p := cue.Param.(type) {
	case model.AudioParam:
		instanceID := model.NewInstanceID()
		x.mu.Lock()
		x.instances[instanceID] = cue.ID
		x.mu.Unlock()

		data := audio.PlayData{
			Target:     p.Target,
			Master:     p.Levels.Master,
			StartTime:  p.StartTime,
			EndTime:    p.EndTime,
			FadeIn:     p.FadeIn,
			FadeOut:    p.FadeOut,
			LoopRegion: p.LoopRegion,
		}

		// Decoding is disk/CPU-bound; run it off the translation loop
		// so a slow file never stalls event handling for other cues.
		go func() {
			if err := x.engine.Play(instanceID, data); err != nil {
				x.mu.Lock()
				delete(x.instances, instanceID)
				x.mu.Unlock()
				x.emit(Event{Kind: EventError, CueID: cue.ID, Message: err.Error()})
			}
		}()

	case model.WaitParam:
		waitID := model.NewInstanceID()
		ctx, cancel := context.WithCancel(context.Background())
		x.mu.Lock()
		x.waits[waitID] = cancel
		x.mu.Unlock()
		go x.runWait(ctx, waitID, cue.ID, p.Duration)

	default:
		log.Printf("executor: cue %s has no executable action (kind=%s)", cue.ID, model.ParamKind(cue.Param))
	}
}

// runWait emits Started immediately, then Completed after duration —
// unless ctx is cancelled first (StopAll), in which case it exits
// silently: the Controller clears active_cues as part of StopAll
// regardless of whether a Completed event ever arrives.
func (x *Executor) runWait(ctx context.Context, waitID model.InstanceID, cueID model.CueID, durationSeconds float64) {
	defer func() {
		x.mu.Lock()
		delete(x.waits, waitID)
		x.mu.Unlock()
	}()

	x.emit(Event{Kind: EventStarted, CueID: cueID})

	select {
	case <-time.After(time.Duration(durationSeconds * float64(time.Second))):
		x.emit(Event{Kind: EventCompleted, CueID: cueID})
	case <-ctx.Done():
	}
}

// StopCue stops every instance currently dispatched for cueID,
// applying fadeOutSeconds as the stop-fade duration. Completion
// arrives asynchronously via the usual engine-event translation.
func (x *Executor) StopCue(cueID model.CueID, fadeOutSeconds float64) {
	x.stopInstances(x.instancesForCue(cueID), fadeOutSeconds)
}

// StopAll stops every audio instance currently tracked and cancels
// every pending Wait timer, regardless of which cue dispatched them.
func (x *Executor) StopAll(fadeOutSeconds float64) {
	x.mu.Lock()
	instances := make([]model.InstanceID, 0, len(x.instances))
	for instanceID := range x.instances {
		instances = append(instances, instanceID)
	}
	cancels := make([]context.CancelFunc, 0, len(x.waits))
	for _, cancel := range x.waits {
		cancels = append(cancels, cancel)
	}
	x.mu.Unlock()

	x.stopInstances(instances, fadeOutSeconds)
	for _, cancel := range cancels {
		cancel()
	}
}

func (x *Executor) instancesForCue(cueID model.CueID) []model.InstanceID {
	x.mu.Lock()
	defer x.mu.Unlock()
	var instances []model.InstanceID
	for instanceID, c := range x.instances {
		if c == cueID {
			instances = append(instances, instanceID)
		}
	}
	return instances
}

func (x *Executor) stopInstances(instances []model.InstanceID, fadeOutSeconds float64) {
	for _, instanceID := range instances {
		if err := x.engine.Stop(instanceID, fadeOutSeconds); err != nil {
			log.Printf("executor: stop instance %s: %v", instanceID, err)
		}
	}
}

func (x *Executor) emit(ev Event) {
	select {
	case x.events <- ev:
	default:
		// Subscriber too slow to keep up; drop rather than block the
		// translation loop, matching the audio engine's own non-blocking emit.
	}
}

func (x *Executor) handleEngineEvent(ev audio.Event) {
	x.mu.Lock()
	cueID, ok := x.instances[ev.InstanceID]
	x.mu.Unlock()
	if !ok {
		// Legitimate race: a Stop fade can complete after the instance
		// was already removed by an earlier Completed/Error.
		log.Printf("executor: event for unknown instance %s", ev.InstanceID)
		return
	}

	switch ev.Kind {
	case audio.EventStarted:
		x.emit(Event{Kind: EventStarted, CueID: cueID})
	case audio.EventProgress:
		x.emit(Event{Kind: EventProgress, CueID: cueID, Position: ev.Position, Duration: ev.Duration})
	case audio.EventPaused:
		x.emit(Event{Kind: EventPaused, CueID: cueID, Position: ev.Position, Duration: ev.Duration})
	case audio.EventResumed:
		x.emit(Event{Kind: EventResumed, CueID: cueID})
	case audio.EventCompleted:
		x.mu.Lock()
		delete(x.instances, ev.InstanceID)
		x.mu.Unlock()
		x.emit(Event{Kind: EventCompleted, CueID: cueID})
	case audio.EventError:
		x.mu.Lock()
		delete(x.instances, ev.InstanceID)
		x.mu.Unlock()
		x.emit(Event{Kind: EventError, CueID: cueID, Message: ev.Message})
	}
}
