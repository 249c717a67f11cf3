package workload

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// Generator produces batches of tasks with sequential IDs and random categories.
//
// IDs are twelve-digit zero-padded integers starting at zero, so every batch
// of the same size carries the same IDs. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	weights WeightGenerator
}

// NewGenerator creates a task generator.
//
// Parameters:
//   - weights: Source of task weights (random in [0, 10] when nil)
//   - seed: Seed for category selection
//
// Returns:
//   - *Generator: Initialized generator
func NewGenerator(weights WeightGenerator, seed uint64) *Generator {
	if weights == nil {
		weights = NewRandomWeightGenerator(10, seed)
	}

	return &Generator{
		rng:     rand.New(rand.NewPCG(seed, ^seed)),
		weights: weights,
	}
}

// TaskID formats the i-th task ID.
func TaskID(i int) string {
	return fmt.Sprintf("%012d", i)
}

// Generate returns count tasks.
func (g *Generator) Generate(count int) []types.Task {
	weights := g.weights.GenerateWeights(count)
	categories := types.Categories()

	g.mu.Lock()
	defer g.mu.Unlock()

	tasks := make([]types.Task, count)
	for i := range count {
		tasks[i] = types.Task{
			ID:       TaskID(i),
			Category: categories[g.rng.IntN(len(categories))],
			Weight:   weights[i],
		}
	}

	return tasks
}
