package placer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stegfs-go/stegfs/internal/cfg"
	"github.com/stegfs-go/stegfs/internal/crypto"
	"github.com/stegfs-go/stegfs/internal/placer"
)

func TestPlaceIsDeterministicAndCountMatches(t *testing.T) {
	c := cfg.Default()
	c.KDFIterations = 2
	suite, err := crypto.NewSuite(c)
	require.NoError(t, err)

	a, err := placer.Place(suite, "/docs", "secret.txt", 8)
	require.NoError(t, err)
	require.Len(t, a, 8)

	b, err := placer.Place(suite, "/docs", "secret.txt", 8)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestPlaceDiffersByPathOrName(t *testing.T) {
	c := cfg.Default()
	c.KDFIterations = 2
	suite, err := crypto.NewSuite(c)
	require.NoError(t, err)

	a, err := placer.Place(suite, "/docs", "secret.txt", 4)
	require.NoError(t, err)
	b, err := placer.Place(suite, "/docs", "other.txt", 4)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
