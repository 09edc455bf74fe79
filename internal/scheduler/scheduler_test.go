package scheduler

import "testing"

func TestAdvanceDispatchesInOrder(t *testing.T) {
	s := New()
	var order []int
	s.Schedule(10, func(uint64) { order = append(order, 1) })
	s.Schedule(5, func(uint64) { order = append(order, 2) })
	s.Schedule(5, func(uint64) { order = append(order, 3) }) // same trigger, later insertion

	s.Advance(10)

	want := []int{2, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDescheduleBeforeTriggerPreventsFire(t *testing.T) {
	s := New()
	fired := false
	id := s.Schedule(5, func(uint64) { fired = true })
	s.Deschedule(id)
	s.Advance(10)
	if fired {
		t.Error("descheduled event fired anyway")
	}
}

func TestDescheduleAlreadyFiredIsNoop(t *testing.T) {
	s := New()
	id := s.Schedule(1, func(uint64) {})
	s.Advance(1)
	s.Deschedule(id) // should not panic
}

func TestReentrantScheduleFiresWithinSameAdvance(t *testing.T) {
	s := New()
	count := 0
	var cb Callback
	cb = func(uint64) {
		count++
		if count < 3 {
			s.Schedule(0, cb)
		}
	}
	s.Schedule(1, cb)
	s.Advance(1)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestIgnoreOverflowCyclesZeroesLateness(t *testing.T) {
	s := New()
	s.IgnoreOverflowCycles = true
	var late uint64 = 99
	s.Schedule(1, func(l uint64) { late = l })
	s.Advance(100)
	if late != 0 {
		t.Errorf("late = %d, want 0", late)
	}
}
