package workload

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

func TestTaskID(t *testing.T) {
	require.Equal(t, "000000000000", TaskID(0))
	require.Equal(t, "000000000042", TaskID(42))
	require.Len(t, TaskID(999_999), 12)
}

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator(nil, 3)
	tasks := g.Generate(2000)
	require.Len(t, tasks, 2000)

	perCategory := make(map[types.Category]int)
	for i, task := range tasks {
		require.Equal(t, TaskID(i), task.ID)
		require.NoError(t, task.Validate())
		require.LessOrEqual(t, task.Weight, int64(10))
		perCategory[task.Category]++
	}

	// Categories are drawn uniformly
	for _, c := range types.Categories() {
		require.Greater(t, perCategory[c], 2000/types.NumCategories()/2, "category %s", c)
	}

	t.Run("batches share IDs", func(t *testing.T) {
		again := g.Generate(10)
		for i := range again {
			require.Equal(t, tasks[i].ID, again[i].ID)
		}
	})

	t.Run("custom weights", func(t *testing.T) {
		tasks := NewGenerator(NewUniformWeightGenerator(4), 1).Generate(5)
		for _, task := range tasks {
			require.Equal(t, int64(4), task.Weight)
		}
	})
}
