package audio

import (
	"sync"
	"time"

	"github.com/bbernstein/sbsp-go/internal/model"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

// rampUpdateRate is how often active volume ramps are advanced. 25ms
// (40Hz) gives smooth audible fades without meaningfully loading the
// mixer goroutine.
const rampUpdateRate = 25 * time.Millisecond

// activeRamp is one in-flight volume ramp against a single sound's
// effects.Volume. onStart fires the first tick the ramp is applied
// (used to flip a sound out of a waiting state); onComplete fires once
// progress reaches 1.
type activeRamp struct {
	target     *effects.Volume
	startValue float64
	endValue   float64
	startTime  time.Time
	duration   time.Duration
	easing     model.Easing
	onStart    func()
	onComplete func()
	started    bool
}

// rampScheduler runs every active volume ramp on a fixed tick,
// mirroring the project's DMX fade engine but writing directly into
// each sound's effects.Volume.Volume field instead of a channel value.
type rampScheduler struct {
	mu       sync.Mutex
	ramps    map[string]*activeRamp
	stopChan chan struct{}
	running  bool
}

func newRampScheduler() *rampScheduler {
	return &rampScheduler{ramps: make(map[string]*activeRamp)}
}

func (r *rampScheduler) start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.mu.Unlock()

	go r.loop()
}

func (r *rampScheduler) stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopChan)
	r.mu.Unlock()
}

func (r *rampScheduler) loop() {
	ticker := time.NewTicker(rampUpdateRate)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

// schedule installs a new ramp, replacing any ramp already keyed by
// id. Re-keying on the same id (e.g. a second SetLevels landing while
// a fade is still running) lets the newer command simply win instead
// of the two fighting over the value.
func (r *rampScheduler) schedule(id string, target *effects.Volume, startValue, endValue float64, duration time.Duration, easing model.Easing, onStart, onComplete func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ramps[id] = &activeRamp{
		target:     target,
		startValue: startValue,
		endValue:   endValue,
		startTime:  time.Now(),
		duration:   duration,
		easing:     easing,
		onStart:    onStart,
		onComplete: onComplete,
	}
}

func (r *rampScheduler) tick() {
	r.mu.Lock()
	var fire []func()
	now := time.Now()
	for id, ramp := range r.ramps {
		progress := 1.0
		if ramp.duration > 0 {
			progress = float64(now.Sub(ramp.startTime)) / float64(ramp.duration)
		}
		done := progress >= 1
		if progress > 1 {
			progress = 1
		} else if progress < 0 {
			progress = 0
		}
		value := model.Interpolate(ramp.startValue, ramp.endValue, progress, ramp.easing)

		if !ramp.started {
			ramp.started = true
			if ramp.onStart != nil {
				fire = append(fire, ramp.onStart)
			}
		}

		speaker.Lock()
		ramp.target.Volume = value
		speaker.Unlock()

		if done {
			delete(r.ramps, id)
			if ramp.onComplete != nil {
				fire = append(fire, ramp.onComplete)
			}
		}
	}
	r.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
}
