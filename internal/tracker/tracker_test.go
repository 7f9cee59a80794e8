package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkUsedAndFree(t *testing.T) {
	tr := New(8, false)
	require.False(t, tr.IsUsed(3))

	tr.MarkUsed(3, "/a/b")
	require.True(t, tr.IsUsed(3))

	stats := tr.Stats()
	require.Equal(t, uint64(1), stats.Used)
	require.Equal(t, uint64(7), stats.Free)
	require.Equal(t, uint64(8), stats.Total)

	tr.MarkFree(3)
	require.False(t, tr.IsUsed(3))
	require.Equal(t, uint64(8), tr.Stats().Free)
}

func TestOwnerRequiresShowBloc(t *testing.T) {
	tr := New(4, false)
	tr.MarkUsed(1, "/owner")
	_, ok := tr.Owner(1)
	require.False(t, ok)

	tr2 := New(4, true)
	tr2.MarkUsed(1, "/owner")
	owner, ok := tr2.Owner(1)
	require.True(t, ok)
	require.Equal(t, "/owner", owner)
}

func TestOutOfRangeIndexIsNoop(t *testing.T) {
	tr := New(4, true)
	require.False(t, tr.IsUsed(100))
	tr.MarkUsed(100, "ignored") // must not panic
	tr.MarkFree(100)           // must not panic
}
