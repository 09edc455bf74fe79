// Package scheduler implements the global min-heap of timestamped
// events every peripheral synchronizes against (§3 "Scheduler",
// §5 "Event ordering").
package scheduler

import "container/heap"

// EventID uniquely identifies a scheduled event. InvalidEvent means
// "no event".
type EventID uint64

// InvalidEvent is the sentinel id representing "no event".
const InvalidEvent EventID = 0

// Callback is invoked when an event fires. cyclesLate is how far past
// the event's trigger timestamp the scheduler had already advanced;
// it is zero for the first callback dispatched after fast-forward mode
// (IgnoreOverflowCycles) is set.
type Callback func(cyclesLate uint64)

type event struct {
	id       EventID
	trigger  uint64
	sequence uint64 // insertion order, for stable tie-breaking
	callback Callback
	userdata any
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].trigger != h[j].trigger {
		return h[i].trigger < h[j].trigger
	}
	return h[i].sequence < h[j].sequence
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Scheduler is a single-threaded min-heap of events, advanced by the
// outer run loop after every CPU step or DMA word.
type Scheduler struct {
	heap eventHeap
	now  uint64
	next EventID
	seq  uint64

	// IgnoreOverflowCycles forces the next dispatched callback's
	// cyclesLate to be reported as zero, preventing cascading
	// negative schedule offsets during burst DMA or similar
	// zero-duration event storms (§5 "Fast-forward mode").
	IgnoreOverflowCycles bool
}

// New creates an empty Scheduler starting at timestamp zero.
func New() *Scheduler {
	return &Scheduler{next: InvalidEvent + 1}
}

// Now returns the current simulated timestamp.
func (s *Scheduler) Now() uint64 { return s.now }

// Schedule registers a new event to fire at time (now + delay).
// A delay of zero or negative-equivalent (trigger <= now) models an
// instantaneous effect; such an event fires on the very next Advance
// call with cyclesLate honoring IgnoreOverflowCycles.
func (s *Scheduler) Schedule(delay uint64, cb Callback) EventID {
	id := s.next
	s.next++
	e := &event{id: id, trigger: s.now + delay, sequence: s.seq, callback: cb}
	s.seq++
	heap.Push(&s.heap, e)
	return id
}

// ScheduleAt registers a new event to fire at an absolute timestamp.
func (s *Scheduler) ScheduleAt(trigger uint64, cb Callback) EventID {
	id := s.next
	s.next++
	e := &event{id: id, trigger: trigger, sequence: s.seq, callback: cb}
	s.seq++
	heap.Push(&s.heap, e)
	return id
}

// Deschedule removes a still-pending event. Descheduling an id that
// has already fired (or never existed) is a silent no-op.
func (s *Scheduler) Deschedule(id EventID) {
	if id == InvalidEvent {
		return
	}
	for i, e := range s.heap {
		if e.id == id {
			heap.Remove(&s.heap, i)
			return
		}
	}
}

// Pending reports whether id is still scheduled.
func (s *Scheduler) Pending(id EventID) bool {
	if id == InvalidEvent {
		return false
	}
	for _, e := range s.heap {
		if e.id == id {
			return true
		}
	}
	return false
}

// Advance moves simulated time forward by n cycles, dispatching every
// event whose trigger has elapsed, in non-decreasing trigger order
// (insertion order breaks ties, per §5 "Event ordering"). A callback
// may synchronously schedule further events; a freshly scheduled event
// with trigger <= the new "now" is dispatched within the same Advance
// call, since the heap is re-consulted after every pop.
func (s *Scheduler) Advance(n uint64) {
	target := s.now + n
	for s.heap.Len() > 0 && s.heap[0].trigger <= target {
		e := heap.Pop(&s.heap).(*event)
		var late uint64
		if s.IgnoreOverflowCycles {
			s.IgnoreOverflowCycles = false
		} else {
			late = target - e.trigger
		}
		s.now = e.trigger
		e.callback(late)
	}
	s.now = target
}

// Len reports the number of pending events, for diagnostics/tests.
func (s *Scheduler) Len() int { return s.heap.Len() }
