package random_test

import (
	"testing"

	"github.com/myrjola/survey/internal/random"
	"github.com/stretchr/testify/require"
)

func TestLetters(t *testing.T) {
	for _, n := range []uint{0, 1, 24, 32} {
		got, err := random.Letters(n)
		require.NoError(t, err)
		require.Len(t, got, int(n))
		require.Regexp(t, "^[a-zA-Z]*$", got)
	}

	a, err := random.Letters(32)
	require.NoError(t, err)
	b, err := random.Letters(32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
