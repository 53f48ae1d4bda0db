// Package bus carries state and events from the core out to the API
// layer. It adapts the project's publish-subscribe pattern into the
// two shapes spec'd for this system: a replace-latest snapshot
// channel for ShowState, and a bounded fan-out broadcast for discrete
// UiEvents. Both publish sides are non-blocking — a slow or absent
// subscriber never stalls the Controller or Manager.
package bus

import (
	"sync"

	"github.com/bbernstein/sbsp-go/internal/event"
	"github.com/bbernstein/sbsp-go/internal/model"
)

// EventBufferSize is the bounded capacity of each UiEvent subscriber
// channel, per spec.md §4.3.
const EventBufferSize = 32

// StateSubscriber receives ShowState snapshots. Only the most recent
// unread snapshot is ever delivered: a publish while a previous one is
// still buffered replaces it rather than queuing, so a receiver can
// never fall behind by more than one snapshot.
type StateSubscriber struct {
	id uint64
	ch chan model.ShowState
}

// Channel returns the receive side of the subscription.
func (s *StateSubscriber) Channel() <-chan model.ShowState { return s.ch }

// EventSubscriber receives UiEvents in order, up to its buffer. If the
// buffer fills, further events are dropped for that subscriber and
// Lagged counts the drop rather than blocking the publisher.
type EventSubscriber struct {
	id     uint64
	ch     chan event.UiEvent
	mu     sync.Mutex
	lagged uint64
}

// Channel returns the receive side of the subscription.
func (s *EventSubscriber) Channel() <-chan event.UiEvent { return s.ch }

// Lagged returns how many events have been dropped for this
// subscriber because its buffer was full.
func (s *EventSubscriber) Lagged() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lagged
}

func (s *EventSubscriber) markLagged() {
	s.mu.Lock()
	s.lagged++
	s.mu.Unlock()
}

// Bus owns both publication channels. One Bus is shared by the
// Controller (publishes state and playback events), the Manager
// (publishes authoring events), the API layer (subscribes to both)
// and the history log (subscribes to events).
type Bus struct {
	mu           sync.RWMutex
	stateSubs    map[uint64]*StateSubscriber
	eventSubs    map[uint64]*EventSubscriber
	nextStateID  uint64
	nextEventID  uint64
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		stateSubs: make(map[uint64]*StateSubscriber),
		eventSubs: make(map[uint64]*EventSubscriber),
	}
}

// SubscribeState registers a new latest-wins ShowState subscriber.
func (b *Bus) SubscribeState() *StateSubscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextStateID++
	sub := &StateSubscriber{id: b.nextStateID, ch: make(chan model.ShowState, 1)}
	b.stateSubs[sub.id] = sub
	return sub
}

// UnsubscribeState removes a ShowState subscriber and closes its
// channel.
func (b *Bus) UnsubscribeState(sub *StateSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.stateSubs[sub.id]; ok {
		delete(b.stateSubs, sub.id)
		close(sub.ch)
	}
}

// PublishState replaces the pending snapshot for every subscriber. A
// full channel means a previous snapshot is still unread; it is
// drained and replaced rather than queued, so subscribers always see
// the latest state, never a backlog of stale ones. No subscribers is
// not an error, per spec.md §4.3.
func (b *Bus) PublishState(s model.ShowState) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.stateSubs {
		replaceLatest(sub.ch, s)
	}
}

// replaceLatest delivers s into ch, discarding whatever snapshot is
// currently buffered if ch is full. A concurrent receiver draining ch
// between the full-check and the drain is fine either way: at worst
// this loops once more and still ends with s buffered.
func replaceLatest(ch chan model.ShowState, s model.ShowState) {
	for {
		select {
		case ch <- s:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// SubscribeEvents registers a new bounded UiEvent subscriber.
func (b *Bus) SubscribeEvents() *EventSubscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextEventID++
	sub := &EventSubscriber{id: b.nextEventID, ch: make(chan event.UiEvent, EventBufferSize)}
	b.eventSubs[sub.id] = sub
	return sub
}

// UnsubscribeEvents removes a UiEvent subscriber and closes its
// channel.
func (b *Bus) UnsubscribeEvents(sub *EventSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.eventSubs[sub.id]; ok {
		delete(b.eventSubs, sub.id)
		close(sub.ch)
	}
}

// PublishEvent fans a UiEvent out to every subscriber without
// blocking. A subscriber whose buffer is full is marked lagged and
// the event is dropped for it only; no subscribers is not an error,
// per spec.md §4.3.
func (b *Bus) PublishEvent(e event.UiEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.eventSubs {
		select {
		case sub.ch <- e:
		default:
			sub.markLagged()
		}
	}
}

// EventSubscriberCount reports how many UiEvent subscribers are
// currently registered, mainly for tests and diagnostics.
func (b *Bus) EventSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.eventSubs)
}

// StateSubscriberCount reports how many ShowState subscribers are
// currently registered, mainly for tests and diagnostics.
func (b *Bus) StateSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.stateSubs)
}
