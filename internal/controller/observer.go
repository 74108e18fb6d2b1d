package controller

import "sync"

// Event is one controller event; exactly one field is set.
type Event struct {
	Transition *Transition
	Tick       *Tick
}

// ChannelObserver turns controller events into a channel for an event loop.
// Ticks are dropped when the buffer is full; transitions wait for the reader
// until Close.
type ChannelObserver struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// NewChannelObserver creates an observer with the given buffer size.
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelObserver{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the event stream.
func (o *ChannelObserver) Events() <-chan Event {
	return o.events
}

// Done is closed by Close.
func (o *ChannelObserver) Done() <-chan struct{} {
	return o.done
}

// Close stops delivery. Pending and later events are discarded.
func (o *ChannelObserver) Close() {
	o.once.Do(func() { close(o.done) })
}

func (o *ChannelObserver) OnTransition(t Transition) {
	select {
	case o.events <- Event{Transition: &t}:
	case <-o.done:
	}
}

func (o *ChannelObserver) OnElapsed(t Tick) {
	select {
	case o.events <- Event{Tick: &t}:
	default:
	}
}
