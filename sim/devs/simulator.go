package devs

import (
	"context"
	"errors"
	"fmt"

	"github.com/steppesim/steppe/sim"
)

// Simulator executes scheduled events in time order.
type Simulator struct {
	events *EventList
	time   float64
}

// NewSimulator creates a simulator starting at the given time.
func NewSimulator(startTime float64) *Simulator {
	return &Simulator{events: NewEventList(), time: startTime}
}

// Time returns the current simulated time.
func (s *Simulator) Time() float64 { return s.time }

// ScheduleNow schedules fn at the current simulated time.
func (s *Simulator) ScheduleNow(fn func(), priority Priority) *Event {
	return s.ScheduleAt(fn, s.time, priority)
}

// ScheduleAt schedules fn at an absolute time. Times before the current
// time are clamped to now.
func (s *Simulator) ScheduleAt(fn func(), at float64, priority Priority) *Event {
	if at < s.time {
		at = s.time
	}
	event := &Event{Time: at, Priority: priority, Fn: fn}
	s.events.Add(event)
	return event
}

// ScheduleIn schedules fn a relative delay from now.
func (s *Simulator) ScheduleIn(fn func(), delay float64, priority Priority) *Event {
	return s.ScheduleAt(fn, s.time+delay, priority)
}

// Cancel removes a scheduled event.
func (s *Simulator) Cancel(event *Event) {
	event.Cancel()
}

// StepEvent pops and executes the next event, advancing simulated time to
// the event's time.
func (s *Simulator) StepEvent() error {
	event, err := s.events.Pop()
	if err != nil {
		return fmt.Errorf("step event: %w", err)
	}
	s.time = event.Time
	event.Execute()
	return nil
}

// RunUntil executes events until simulated time reaches endTime, the event
// list drains, or ctx is done.
func (s *Simulator) RunUntil(ctx context.Context, endTime float64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := s.events.Peek()
		if err != nil {
			if errors.Is(err, ErrEmpty) {
				return nil
			}
			return err
		}
		if next.Time > endTime {
			return nil
		}
		if err := s.StepEvent(); err != nil {
			return err
		}
	}
}

// Reset drops all pending events and rewinds time.
func (s *Simulator) Reset(startTime float64) {
	s.events.Clear()
	s.time = startTime
}

// ABMSimulator drives a model's scheduler through the event list at integer
// ticks, letting ad-hoc events interleave with regular model steps.
type ABMSimulator struct {
	Simulator
	model sim.Runnable
}

// NewABMSimulator creates an ABM simulator starting at tick zero.
func NewABMSimulator() *ABMSimulator {
	return &ABMSimulator{Simulator: Simulator{events: NewEventList()}}
}

// Setup attaches the model and schedules its first step at the next tick.
func (s *ABMSimulator) Setup(model sim.Runnable) error {
	if model == nil || model.Base() == nil {
		return fmt.Errorf("model is required")
	}
	s.Reset(0)
	s.model = model
	s.scheduleModelStep(1)
	return nil
}

// Model returns the attached model.
func (s *ABMSimulator) Model() sim.Runnable { return s.model }

func (s *ABMSimulator) scheduleModelStep(at float64) {
	s.ScheduleAt(func() {
		if !s.model.Base().Running {
			return
		}
		s.model.Step()
		s.scheduleModelStep(at + 1)
	}, at, PriorityHigh)
}
