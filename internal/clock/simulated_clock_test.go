package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSimulatedClockAdvanceTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sc := NewSimulatedClock(start)
	require.Equal(t, start, sc.Now())

	sc.AdvanceTime(time.Hour)
	require.Equal(t, start.Add(time.Hour), sc.Now())
}

func TestSimulatedClockSetTime(t *testing.T) {
	sc := NewSimulatedClock(time.Time{})
	later := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	sc.SetTime(later)
	require.Equal(t, later, sc.Now())
}
