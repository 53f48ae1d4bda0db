package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bbernstein/sbsp-go/internal/model"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

// silenceDB stands in for -infinity dB: far enough down to be
// inaudible, but still a real number a ramp can interpolate toward.
const silenceDB = -60.0

// defaultTweenDuration is the fixed ramp length Pause and Resume apply
// ("default tween" in the engine contract), as opposed to Stop and
// SetLevels which take an explicit duration from the caller.
const defaultTweenDuration = 250 * time.Millisecond

func dbToBeepVolume(db float64) float64 {
	return db / 20 * math.Log2(10)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// soundStatus tracks one instance through the engine's states:
// Playing and Paused are steady states; Pausing/Resuming/Stopping are
// ramp-in-progress transients; WaitingToResume is the single tick
// between a Resume call and its ramp actually taking hold.
type soundStatus string

const (
	statusPlaying       soundStatus = "PLAYING"
	statusPausing       soundStatus = "PAUSING"
	statusPaused        soundStatus = "PAUSED"
	statusWaitingResume soundStatus = "WAITING_TO_RESUME"
	statusResuming      soundStatus = "RESUMING"
	statusStopping      soundStatus = "STOPPING"
	statusStopped       soundStatus = "STOPPED"
)

type sound struct {
	instanceID           model.InstanceID
	source               beep.StreamSeekCloser
	sliced               *slicedLoopStreamer
	volume               *effects.Volume
	ctrl                 *beep.Ctrl
	sampleRate           beep.SampleRate
	totalDurationSeconds float64
	targetVolume         float64 // log2 units, the nominal (un-ramped) level

	mu            sync.Mutex
	status        soundStatus
	pausedEmitted bool
}

func (s *sound) positionSeconds() (pos, dur float64) {
	speaker.Lock()
	p := s.sliced.Position()
	speaker.Unlock()
	return float64(p) / float64(s.sampleRate), s.totalDurationSeconds
}

// Engine owns the process's single audio mixer. One poll loop reports
// progress for every tracked instance; a separate ramp scheduler
// drives fades and level changes. Both run only while Start has been
// called.
type Engine struct {
	mu           sync.Mutex
	sounds       map[model.InstanceID]*sound
	ramps        *rampScheduler
	events       chan Event
	pollInterval time.Duration
	sampleRate   beep.SampleRate

	stopChan chan struct{}
	started  bool
	wg       sync.WaitGroup
}

// NewEngine initializes the speaker output and returns an Engine
// ready to Start. sampleRate and pollInterval come from configuration;
// spec.md calls for roughly 50ms poll granularity.
func NewEngine(sampleRate int, pollInterval time.Duration) (*Engine, error) {
	rate := beep.SampleRate(sampleRate)
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init audio output: %w", err)
	}
	return &Engine{
		sounds:       make(map[model.InstanceID]*sound),
		ramps:        newRampScheduler(),
		events:       make(chan Event, 64),
		pollInterval: pollInterval,
		sampleRate:   rate,
	}, nil
}

// Events returns the channel the engine publishes asynchronous
// playback notifications on.
func (e *Engine) Events() <-chan Event { return e.events }

// Start begins the poll loop and the ramp scheduler.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.stopChan = make(chan struct{})
	e.mu.Unlock()

	e.ramps.start()
	e.wg.Add(1)
	go e.pollLoop()
}

// Close stops the poll loop and ramp scheduler and waits for them to
// exit. It does not stop sounds already playing through the speaker.
func (e *Engine) Close() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	close(e.stopChan)
	e.mu.Unlock()

	e.wg.Wait()
	e.ramps.stop()
}

func (e *Engine) pollLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.poll()
		}
	}
}

func (e *Engine) poll() {
	e.mu.Lock()
	entries := make([]*sound, 0, len(e.sounds))
	for _, s := range e.sounds {
		entries = append(entries, s)
	}
	e.mu.Unlock()

	for _, s := range entries {
		s.mu.Lock()
		status := s.status
		pausedEmitted := s.pausedEmitted
		s.mu.Unlock()

		switch status {
		case statusPlaying, statusPausing, statusResuming, statusStopping:
			pos, dur := s.positionSeconds()
			e.emit(Event{Kind: EventProgress, InstanceID: s.instanceID, Position: pos, Duration: dur})
		case statusPaused:
			if !pausedEmitted {
				pos, dur := s.positionSeconds()
				s.mu.Lock()
				s.pausedEmitted = true
				s.mu.Unlock()
				e.emit(Event{Kind: EventPaused, InstanceID: s.instanceID, Position: pos, Duration: dur})
			}
		case statusWaitingResume:
			// Resume's ramp has not taken its first tick yet; nothing to report.
		case statusStopped:
			e.completeSound(s)
		}
	}
}

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		// Subscriber too slow to keep up; drop rather than block the
		// poll/ramp loop, matching the bus's own non-blocking publish.
	}
}

func (e *Engine) lookup(id model.InstanceID) (*sound, error) {
	e.mu.Lock()
	s, ok := e.sounds[id]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("audio engine: unknown instance %s", id)
	}
	return s, nil
}

func (e *Engine) completeSound(s *sound) {
	e.mu.Lock()
	delete(e.sounds, s.instanceID)
	e.mu.Unlock()
	e.emit(Event{Kind: EventCompleted, InstanceID: s.instanceID})
}

func (e *Engine) markStopped(id model.InstanceID) {
	s, err := e.lookup(id)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.status = statusStopped
	s.mu.Unlock()
}

// Play decodes and slices the requested file, starts it immediately,
// and schedules any fade-in/fade-out ramps. Decoding happens inline on
// the calling goroutine; the Executor is expected to call Play from a
// worker goroutine rather than its own run loop so a slow disk never
// stalls cue dispatch.
func (e *Engine) Play(instanceID model.InstanceID, data PlayData) error {
	source, format, err := decodeFile(data.Target)
	if err != nil {
		return fmt.Errorf("audio engine: %w", err)
	}

	totalSamples := source.Len()
	startSample := 0
	if data.StartTime != nil {
		startSample = format.SampleRate.N(secondsToDuration(*data.StartTime))
	}
	endSample := totalSamples
	if data.EndTime != nil {
		if s := format.SampleRate.N(secondsToDuration(*data.EndTime)); s < totalSamples {
			endSample = s
		}
	}

	var loop *sampleLoopRegion
	if data.LoopRegion != nil {
		loop = &sampleLoopRegion{
			Start: startSample + format.SampleRate.N(secondsToDuration(data.LoopRegion.Start)),
			End:   startSample + format.SampleRate.N(secondsToDuration(data.LoopRegion.End)),
		}
	}

	sliced := newSlicedLoopStreamer(source, startSample, endSample, loop)

	var playable beep.Streamer = sliced
	if format.SampleRate != e.sampleRate {
		playable = beep.Resample(4, format.SampleRate, e.sampleRate, sliced)
	}

	target := dbToBeepVolume(data.Master)
	initial := target
	if data.FadeIn != nil {
		initial = dbToBeepVolume(silenceDB)
	}
	vol := &effects.Volume{Streamer: playable, Base: 2, Volume: initial}
	ctrl := &beep.Ctrl{Streamer: vol}

	durationSeconds := float64(endSample-startSample) / float64(format.SampleRate)

	s := &sound{
		instanceID:           instanceID,
		source:               source,
		sliced:               sliced,
		volume:               vol,
		ctrl:                 ctrl,
		sampleRate:           format.SampleRate,
		totalDurationSeconds: durationSeconds,
		targetVolume:         target,
		status:               statusPlaying,
	}

	e.mu.Lock()
	e.sounds[instanceID] = s
	e.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		e.markStopped(instanceID)
		source.Close()
	})))

	if data.FadeIn != nil {
		e.ramps.schedule(instanceID.String()+":fade", vol, dbToBeepVolume(silenceDB), target,
			secondsToDuration(data.FadeIn.Duration), data.FadeIn.Easing, nil, nil)
	}
	if data.FadeOut != nil {
		delay := secondsToDuration(durationSeconds - data.FadeOut.Duration)
		if delay < 0 {
			delay = 0
		}
		fadeOut := data.FadeOut
		time.AfterFunc(delay, func() {
			e.ramps.schedule(instanceID.String()+":fade", vol, target, dbToBeepVolume(silenceDB),
				secondsToDuration(fadeOut.Duration), fadeOut.Easing, nil, nil)
		})
	}

	e.emit(Event{Kind: EventStarted, InstanceID: instanceID})
	return nil
}

// Pause applies the default tween down to silence, then marks the
// sound Paused and mutes its control so it stops consuming samples.
func (e *Engine) Pause(id model.InstanceID) error {
	s, err := e.lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.status != statusPlaying {
		s.mu.Unlock()
		return nil
	}
	s.status = statusPausing
	s.mu.Unlock()

	speaker.Lock()
	current := s.volume.Volume
	speaker.Unlock()

	e.ramps.schedule(id.String()+":pause", s.volume, current, dbToBeepVolume(silenceDB), defaultTweenDuration, model.EasingLinear,
		nil,
		func() {
			speaker.Lock()
			s.ctrl.Paused = true
			speaker.Unlock()
			s.mu.Lock()
			s.status = statusPaused
			s.mu.Unlock()
		},
	)
	return nil
}

// Resume is a no-op unless the sound is Paused. Otherwise it unmutes
// immediately (emitting Resumed right away) and ramps back up to the
// sound's nominal level over the default tween.
func (e *Engine) Resume(id model.InstanceID) error {
	s, err := e.lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.status != statusPaused {
		s.mu.Unlock()
		return nil
	}
	s.status = statusWaitingResume
	s.pausedEmitted = false
	target := s.targetVolume
	s.mu.Unlock()

	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()

	e.emit(Event{Kind: EventResumed, InstanceID: id})

	e.ramps.schedule(id.String()+":pause", s.volume, dbToBeepVolume(silenceDB), target, defaultTweenDuration, model.EasingLinear,
		func() {
			s.mu.Lock()
			s.status = statusResuming
			s.mu.Unlock()
		},
		func() {
			s.mu.Lock()
			s.status = statusPlaying
			s.mu.Unlock()
		},
	)
	return nil
}

// Stop applies an immediate-start linear fade of the given duration
// and mutes the sound once it completes; the final Completed event
// arrives via the poll loop once the fade has run its course.
func (e *Engine) Stop(id model.InstanceID, fadeOutSeconds float64) error {
	s, err := e.lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.status = statusStopping
	s.mu.Unlock()

	speaker.Lock()
	current := s.volume.Volume
	speaker.Unlock()

	e.ramps.schedule(id.String()+":fade", s.volume, current, dbToBeepVolume(silenceDB), secondsToDuration(fadeOutSeconds), model.EasingLinear,
		nil,
		func() {
			speaker.Lock()
			s.ctrl.Paused = true
			speaker.Unlock()
			e.markStopped(id)
		},
	)
	return nil
}

// SetLevels applies an immediate-start volume ramp to the given
// levels over duration with the given easing, and updates the
// sound's nominal level so a later Pause/Resume cycle returns here.
func (e *Engine) SetLevels(id model.InstanceID, levels model.AudioLevels, duration float64, easing model.Easing) error {
	s, err := e.lookup(id)
	if err != nil {
		return err
	}

	speaker.Lock()
	current := s.volume.Volume
	speaker.Unlock()

	target := dbToBeepVolume(levels.Master)
	s.mu.Lock()
	s.targetVolume = target
	s.mu.Unlock()

	e.ramps.schedule(id.String()+":levels", s.volume, current, target, secondsToDuration(duration), easing, nil, nil)
	return nil
}
