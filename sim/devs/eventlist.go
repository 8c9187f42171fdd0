// Package devs provides a discrete-event scheduling layer: a priority event
// list and simulators that execute callbacks in time order, either at
// arbitrary float times or locked to integer model ticks.
package devs

import (
	"container/heap"
	"errors"
)

// Priority orders events scheduled for the same time. Higher priorities
// execute first.
type Priority int

const (
	PriorityLow     Priority = 1
	PriorityDefault Priority = 5
	PriorityHigh    Priority = 10
)

// ErrEmpty indicates the event list holds no events.
var ErrEmpty = errors.New("event list is empty")

// Event is a scheduled callback. Events for the same time run in priority
// order, then in scheduling order.
type Event struct {
	// Time is the simulated time the event fires at.
	Time float64
	// Priority breaks ties between events at the same time.
	Priority Priority
	// Fn is the callback to execute.
	Fn func()

	id       int64
	canceled bool
}

// Execute runs the event callback. Canceled events are a no-op.
func (e *Event) Execute() {
	if e == nil || e.canceled || e.Fn == nil {
		return
	}
	e.Fn()
}

// Cancel marks the event so it will not execute when popped.
func (e *Event) Cancel() {
	if e != nil {
		e.canceled = true
	}
}

// Canceled reports whether the event was canceled.
func (e *Event) Canceled() bool { return e != nil && e.canceled }

// EventList is a min-heap of events ordered by (time, priority descending,
// scheduling order).
type EventList struct {
	heap   eventHeap
	nextID int64
}

// NewEventList creates an empty event list.
func NewEventList() *EventList {
	return &EventList{}
}

// Add schedules an event.
func (l *EventList) Add(event *Event) {
	if event == nil || event.Fn == nil {
		return
	}
	l.nextID++
	event.id = l.nextID
	heap.Push(&l.heap, event)
}

// Pop removes and returns the next event. Canceled events are discarded.
func (l *EventList) Pop() (*Event, error) {
	for l.heap.Len() > 0 {
		event := heap.Pop(&l.heap).(*Event)
		if event.canceled {
			continue
		}
		return event, nil
	}
	return nil, ErrEmpty
}

// Peek returns the next non-canceled event without removing it.
func (l *EventList) Peek() (*Event, error) {
	for l.heap.Len() > 0 {
		event := l.heap[0]
		if !event.canceled {
			return event, nil
		}
		heap.Pop(&l.heap)
	}
	return nil, ErrEmpty
}

// Len returns the number of events, including canceled ones not yet
// discarded.
func (l *EventList) Len() int { return l.heap.Len() }

// IsEmpty reports whether no live events remain.
func (l *EventList) IsEmpty() bool {
	_, err := l.Peek()
	return err != nil
}

// Clear drops all events.
func (l *EventList) Clear() {
	l.heap = l.heap[:0]
}

type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].id < h[j].id
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(*Event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	event := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return event
}
