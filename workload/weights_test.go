package workload

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomWeightGenerator(t *testing.T) {
	g := NewRandomWeightGenerator(10, 1)
	weights := g.GenerateWeights(5000)
	require.Len(t, weights, 5000)

	seen := make(map[int64]bool)
	for _, w := range weights {
		require.GreaterOrEqual(t, w, int64(0))
		require.LessOrEqual(t, w, int64(10))
		seen[w] = true
	}
	require.Len(t, seen, 11, "every weight in [0, 10] is drawn")

	t.Run("same seed, same sequence", func(t *testing.T) {
		a := NewRandomWeightGenerator(10, 7).GenerateWeights(100)
		b := NewRandomWeightGenerator(10, 7).GenerateWeights(100)
		require.Equal(t, a, b)
	})

	t.Run("zero max yields weightless tasks", func(t *testing.T) {
		for _, w := range NewRandomWeightGenerator(0, 1).GenerateWeights(50) {
			require.Zero(t, w)
		}
	})
}

func TestUniformWeightGenerator(t *testing.T) {
	require.Equal(t, []int64{3, 3, 3}, NewUniformWeightGenerator(3).GenerateWeights(3))
	require.Equal(t, []int64{0, 0}, NewUniformWeightGenerator(0).GenerateWeights(2))
	require.Equal(t, []int64{1}, NewUniformWeightGenerator(-5).GenerateWeights(1))
}

func TestExponentialWeightGenerator(t *testing.T) {
	weights := NewExponentialWeightGenerator(0.05, 100, 1).GenerateWeights(1000)

	extreme := 0
	for _, w := range weights {
		if w == 100 {
			extreme++
		} else {
			require.Equal(t, int64(1), w)
		}
	}
	require.Equal(t, 50, extreme)

	t.Run("invalid parameters fall back to defaults", func(t *testing.T) {
		g := NewExponentialWeightGenerator(2, 0, 0)
		require.Equal(t, 0.05, g.extremePercent)
		require.Equal(t, int64(100), g.extremeWeight)
		require.Equal(t, int64(1), g.normalWeight)
	})
}
