package finance

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// LoadState is the per-ticker loading state during a refresh.
type LoadState string

const (
	StateQueued  LoadState = "queued"
	StateLoading LoadState = "loading"
	StateDone    LoadState = "done"
	StateNoData  LoadState = "no-data"
	StateFailed  LoadState = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s LoadState) Terminal() bool {
	return s == StateDone || s == StateNoData || s == StateFailed
}

// CanTransition allows queued -> loading and loading -> {done, no-data, failed}.
func (s LoadState) CanTransition(to LoadState) bool {
	switch s {
	case StateQueued:
		return to == StateLoading
	case StateLoading:
		return to.Terminal()
	}
	return false
}

// Source tells whether a series came from the provider or the cache.
type Source string

const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
)

// ErrInvalidTransition is returned for a transition the state machine rejects.
var ErrInvalidTransition = errors.New("invalid load state transition")

// Event is one state transition of one ticker. From is empty for the initial
// queued event.
type Event struct {
	Symbol string
	From   LoadState
	To     LoadState
	Source Source
	Range  string
	Points int
	Err    error
	At     time.Time
}

// StatusSink receives transitions as they happen.
type StatusSink interface {
	OnStatus(Event)
}

// StatusSinkFunc adapts a function to StatusSink.
type StatusSinkFunc func(Event)

func (f StatusSinkFunc) OnStatus(e Event) { f(e) }

// TickerStatus is the last known state of a ticker, safe to hand to renderers.
type TickerStatus struct {
	Symbol string    `json:"symbol"`
	State  LoadState `json:"state"`
	Source Source    `json:"source,omitempty"`
	Range  string    `json:"range,omitempty"`
	Points int       `json:"points"`
	Error  string    `json:"error,omitempty"`
}

// tracker owns the state machine of every ticker in one refresh.
type tracker struct {
	mu     sync.Mutex
	order  []string
	states map[string]*TickerStatus
	sink   StatusSink
	now    func() time.Time
}

// newTracker queues symbols and emits their initial events.
func newTracker(symbols []string, sink StatusSink, now func() time.Time) *tracker {
	t := &tracker{
		order:  append([]string(nil), symbols...),
		states: make(map[string]*TickerStatus, len(symbols)),
		sink:   sink,
		now:    now,
	}
	for _, s := range symbols {
		t.states[s] = &TickerStatus{Symbol: s, State: StateQueued}
		t.emit(Event{Symbol: s, To: StateQueued, At: now()})
	}
	return t
}

// transition moves symbol to ev.To and notifies the sink.
func (t *tracker) transition(ev Event) error {
	t.mu.Lock()
	st, ok := t.states[ev.Symbol]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: unknown symbol %s", ErrInvalidTransition, ev.Symbol)
	}
	if !st.State.CanTransition(ev.To) {
		from := st.State
		t.mu.Unlock()
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, ev.Symbol, from, ev.To)
	}
	ev.From = st.State
	ev.At = t.now()
	st.State = ev.To
	st.Source = ev.Source
	st.Range = ev.Range
	st.Points = ev.Points
	st.Error = ""
	if ev.Err != nil {
		st.Error = ev.Err.Error()
	}
	t.mu.Unlock()

	t.emit(ev)
	return nil
}

func (t *tracker) emit(ev Event) {
	if t.sink != nil {
		t.sink.OnStatus(ev)
	}
}

// statuses returns every ticker status in queue order.
func (t *tracker) statuses() []TickerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TickerStatus, 0, len(t.order))
	for _, s := range t.order {
		out = append(out, *t.states[s])
	}
	return out
}
