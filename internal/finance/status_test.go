package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadState_Transitions(t *testing.T) {
	all := []LoadState{StateQueued, StateLoading, StateDone, StateNoData, StateFailed}
	allowed := map[LoadState][]LoadState{
		StateQueued:  {StateLoading},
		StateLoading: {StateDone, StateNoData, StateFailed},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}

	assert.False(t, StateQueued.Terminal())
	assert.False(t, StateLoading.Terminal())
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateNoData.Terminal())
	assert.True(t, StateFailed.Terminal())
}

func TestTracker_EmitsAndRejects(t *testing.T) {
	var got []Event
	sink := StatusSinkFunc(func(e Event) { got = append(got, e) })
	clock := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tr := newTracker([]string{"AAPL", "SPY"}, sink, func() time.Time { return clock })
	require.Len(t, got, 2)
	assert.Equal(t, StateQueued, got[0].To)
	assert.Equal(t, clock, got[0].At)

	err := tr.transition(Event{Symbol: "AAPL", To: StateDone})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, got, 2)

	require.NoError(t, tr.transition(Event{Symbol: "AAPL", To: StateLoading}))
	boom := errors.New("boom")
	require.NoError(t, tr.transition(Event{Symbol: "AAPL", To: StateFailed, Err: boom, Range: "10y"}))
	require.Len(t, got, 4)
	assert.Equal(t, StateLoading, got[3].From)
	assert.ErrorIs(t, got[3].Err, boom)

	assert.ErrorIs(t, tr.transition(Event{Symbol: "AAPL", To: StateLoading}), ErrInvalidTransition)
	assert.ErrorIs(t, tr.transition(Event{Symbol: "MSFT", To: StateLoading}), ErrInvalidTransition)

	statuses := tr.statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, "AAPL", statuses[0].Symbol)
	assert.Equal(t, StateFailed, statuses[0].State)
	assert.Equal(t, "boom", statuses[0].Error)
	assert.Equal(t, "10y", statuses[0].Range)
	assert.Equal(t, "MSFT", statuses[1].Symbol)
	assert.Equal(t, StateQueued, statuses[1].State)
}

func TestTracker_NilSink(t *testing.T) {
	tr := newTracker([]string{"AAPL"}, nil, time.Now)
	assert.NoError(t, tr.transition(Event{Symbol: "AAPL", To: StateLoading}))
	assert.NoError(t, tr.transition(Event{Symbol: "AAPL", To: StateNoData}))
}
