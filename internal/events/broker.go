// Copyright (c) unruhe73 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package events

import (
	"sync"
)

// DefaultBufferSize is the per-subscriber channel capacity used when none is given.
const DefaultBufferSize = 256

// Broker fans events out to any number of subscribers.
// Publishing never blocks and never drops: each subscriber has an unbounded queue
// drained onto its channel by a goroutine of its own.
type Broker struct {
	mu         sync.RWMutex
	subs       map[int]*subscription
	next       int
	bufferSize int
	closed     bool
	wg         sync.WaitGroup
}

// subscription queues events for one subscriber.
type subscription struct {
	out    chan Event
	signal chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	queue   []Event
	closing bool
}

func newSubscription(bufferSize int) *subscription {
	return &subscription{
		out:    make(chan Event, bufferSize),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *subscription) push(event Event) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}

	s.queue = append(s.queue, event)
	s.mu.Unlock()

	s.wake()
}

// finish lets the pump deliver what is queued and then close the channel.
func (s *subscription) finish() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.wake()
}

func (s *subscription) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// pump moves queued events onto the channel in order.
func (s *subscription) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		closing := s.closing
		s.mu.Unlock()

		for _, e := range batch {
			select {
			case s.out <- e:
			case <-s.done:
				return
			}
		}

		if len(batch) > 0 {
			continue
		}

		if closing {
			return
		}

		select {
		case <-s.signal:
		case <-s.done:
			return
		}
	}
}

// NewBroker creates a broker whose subscriber channels hold bufferSize events.
func NewBroker(bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Broker{
		subs:       make(map[int]*subscription),
		bufferSize: bufferSize,
	}
}

// Publish queues the event for every subscriber.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, s := range b.subs {
		s.push(event)
	}
}

// Subscribe returns a channel of events and a function that ends the subscription.
// The channel is closed when the subscription ends, or once the queued events are
// delivered after the broker is closed. A subscriber that stops reading must cancel.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)

		return ch, func() {}
	}

	s := newSubscription(b.bufferSize)

	id := b.next
	b.next++
	b.subs[id] = s

	go s.pump()

	var once sync.Once

	return s.out, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()

			close(s.done)
		})
	}
}

// Listen subscribes and forwards every event to the listener on its own goroutine,
// until the broker is closed.
func (b *Broker) Listen(listener Listener) {
	ch, _ := b.Subscribe()

	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		for event := range ch {
			listener.OnEvent(event)
		}
	}()
}

// Close ends every subscription once its queued events are delivered and waits
// for listeners to drain. Further events are discarded.
func (b *Broker) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		for id, s := range b.subs {
			delete(b.subs, id)
			s.finish()
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
}
