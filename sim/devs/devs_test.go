package devs

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/steppesim/steppe/sim"
)

func TestEventListOrdersByTime(t *testing.T) {
	list := NewEventList()
	var fired []float64
	for _, at := range []float64{3, 1, 2} {
		at := at
		list.Add(&Event{Time: at, Priority: PriorityDefault, Fn: func() {
			fired = append(fired, at)
		}})
	}

	for {
		event, err := list.Pop()
		if errors.Is(err, ErrEmpty) {
			break
		}
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		event.Execute()
	}

	want := []float64{1, 2, 3}
	if !reflect.DeepEqual(fired, want) {
		t.Fatalf("fired order = %v, want %v", fired, want)
	}
}

func TestEventListPriorityBreaksTies(t *testing.T) {
	list := NewEventList()
	var fired []string
	add := func(name string, priority Priority) {
		list.Add(&Event{Time: 1, Priority: priority, Fn: func() {
			fired = append(fired, name)
		}})
	}
	add("low", PriorityLow)
	add("high", PriorityHigh)
	add("default", PriorityDefault)

	for !list.IsEmpty() {
		event, err := list.Pop()
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		event.Execute()
	}

	want := []string{"high", "default", "low"}
	if !reflect.DeepEqual(fired, want) {
		t.Fatalf("fired order = %v, want %v", fired, want)
	}
}

func TestEventListSchedulingOrderBreaksTies(t *testing.T) {
	list := NewEventList()
	var fired []int
	for i := 0; i < 5; i++ {
		i := i
		list.Add(&Event{Time: 1, Priority: PriorityDefault, Fn: func() {
			fired = append(fired, i)
		}})
	}

	for !list.IsEmpty() {
		event, _ := list.Pop()
		event.Execute()
	}

	want := []int{0, 1, 2, 3, 4}
	if !reflect.DeepEqual(fired, want) {
		t.Fatalf("fired order = %v, want %v", fired, want)
	}
}

func TestEventListSkipsCanceled(t *testing.T) {
	list := NewEventList()
	fired := false
	canceled := &Event{Time: 1, Priority: PriorityDefault, Fn: func() { fired = true }}
	list.Add(canceled)
	canceled.Cancel()

	if _, err := list.Pop(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if fired {
		t.Fatal("canceled event fired")
	}
}

func TestEventListPopEmpty(t *testing.T) {
	if _, err := NewEventList().Pop(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestSimulatorAdvancesTime(t *testing.T) {
	s := NewSimulator(0)
	s.ScheduleAt(func() {}, 4, PriorityDefault)
	s.ScheduleIn(func() {}, 2, PriorityDefault)

	if err := s.StepEvent(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.Time() != 2 {
		t.Fatalf("Time() = %v, want 2", s.Time())
	}
	if err := s.StepEvent(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if s.Time() != 4 {
		t.Fatalf("Time() = %v, want 4", s.Time())
	}
}

func TestSimulatorClampsPastTimes(t *testing.T) {
	s := NewSimulator(10)
	event := s.ScheduleAt(func() {}, 3, PriorityDefault)
	if event.Time != 10 {
		t.Fatalf("event time = %v, want clamped to 10", event.Time)
	}
}

func TestSimulatorRunUntil(t *testing.T) {
	s := NewSimulator(0)
	var fired []float64
	for _, at := range []float64{1, 2, 3, 4} {
		at := at
		s.ScheduleAt(func() { fired = append(fired, at) }, at, PriorityDefault)
	}

	if err := s.RunUntil(context.Background(), 2.5); err != nil {
		t.Fatalf("run until: %v", err)
	}

	want := []float64{1, 2}
	if !reflect.DeepEqual(fired, want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	if s.Time() != 2 {
		t.Fatalf("Time() = %v, want 2", s.Time())
	}
}

func TestSimulatorCancel(t *testing.T) {
	s := NewSimulator(0)
	fired := false
	event := s.ScheduleAt(func() { fired = true }, 1, PriorityDefault)
	s.Cancel(event)

	if err := s.RunUntil(context.Background(), 10); err != nil {
		t.Fatalf("run until: %v", err)
	}
	if fired {
		t.Fatal("canceled event fired")
	}
}

func TestSimulatorRunUntilHonorsContext(t *testing.T) {
	s := NewSimulator(0)
	s.ScheduleAt(func() {}, 1, PriorityDefault)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.RunUntil(ctx, 10); err == nil {
		t.Fatal("expected a context error")
	}
}

type tickModel struct {
	*sim.Model
	steps int
	halt  int
}

func (m *tickModel) Step() {
	m.steps++
	if m.halt > 0 && m.steps >= m.halt {
		m.Running = false
	}
}

func TestABMSimulatorStepsModelPerTick(t *testing.T) {
	s := NewABMSimulator()
	model := &tickModel{Model: sim.NewModel(1)}
	if err := s.Setup(model); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := s.RunUntil(context.Background(), 5); err != nil {
		t.Fatalf("run until: %v", err)
	}
	if model.steps != 5 {
		t.Fatalf("model stepped %d times, want 5", model.steps)
	}
}

func TestABMSimulatorStopsWithModel(t *testing.T) {
	s := NewABMSimulator()
	model := &tickModel{Model: sim.NewModel(1), halt: 3}
	if err := s.Setup(model); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := s.RunUntil(context.Background(), 100); err != nil {
		t.Fatalf("run until: %v", err)
	}
	if model.steps != 3 {
		t.Fatalf("model stepped %d times, want 3", model.steps)
	}
}

func TestABMSimulatorRequiresModel(t *testing.T) {
	if err := NewABMSimulator().Setup(nil); err == nil {
		t.Fatal("expected error for nil model")
	}
}
