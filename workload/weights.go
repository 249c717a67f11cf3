package workload

import (
	"math/rand/v2"
	"sync"
)

// WeightGenerator generates task weights based on a distribution pattern.
type WeightGenerator interface {
	// GenerateWeights generates weights for the specified number of tasks.
	GenerateWeights(taskCount int) []int64
}

// RandomWeightGenerator draws weights uniformly from [0, max].
type RandomWeightGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	max int64
}

// NewRandomWeightGenerator creates a new random weight generator.
//
// Parameters:
//   - maxWeight: Largest weight drawn (inclusive, defaults to 10 when negative)
//   - seed: Seed for the pseudo-random source
//
// Returns:
//   - *RandomWeightGenerator: Initialized random weight generator
func NewRandomWeightGenerator(maxWeight int64, seed uint64) *RandomWeightGenerator {
	if maxWeight < 0 {
		maxWeight = 10
	}

	return &RandomWeightGenerator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		max: maxWeight,
	}
}

// GenerateWeights draws taskCount weights.
//
// Parameters:
//   - taskCount: Number of weights to draw
//
// Returns:
//   - []int64: Slice of weights in [0, max]
func (g *RandomWeightGenerator) GenerateWeights(taskCount int) []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	weights := make([]int64, taskCount)
	for i := range taskCount {
		weights[i] = g.rng.Int64N(g.max + 1)
	}

	return weights
}

// UniformWeightGenerator generates uniform weights (all tasks equal).
type UniformWeightGenerator struct {
	weight int64
}

// NewUniformWeightGenerator creates a new uniform weight generator.
//
// Parameters:
//   - weight: Weight to assign to all tasks (negative values become 1)
//
// Returns:
//   - *UniformWeightGenerator: Initialized uniform weight generator
func NewUniformWeightGenerator(weight int64) *UniformWeightGenerator {
	if weight < 0 {
		weight = 1
	}

	return &UniformWeightGenerator{weight: weight}
}

// GenerateWeights creates uniform weight distribution.
func (g *UniformWeightGenerator) GenerateWeights(taskCount int) []int64 {
	weights := make([]int64, taskCount)
	for i := range taskCount {
		weights[i] = g.weight
	}

	return weights
}

// ExponentialWeightGenerator generates exponential weight distribution.
// A small percentage of tasks get extreme weights, rest get normal weights.
type ExponentialWeightGenerator struct {
	extremePercent float64 // 0.05 = 5% of tasks
	extremeWeight  int64   // Weight for extreme tasks
	normalWeight   int64   // Weight for normal tasks
}

// NewExponentialWeightGenerator creates a new exponential weight generator.
//
// Parameters:
//   - extremePercent: Percentage of tasks that are extreme (0.0-1.0)
//   - extremeWeight: Weight for extreme tasks
//   - normalWeight: Weight for normal tasks
//
// Returns:
//   - *ExponentialWeightGenerator: Initialized exponential weight generator
func NewExponentialWeightGenerator(extremePercent float64, extremeWeight, normalWeight int64) *ExponentialWeightGenerator {
	if extremePercent <= 0 || extremePercent >= 1 {
		extremePercent = 0.05 // Default 5%
	}
	if extremeWeight <= 0 {
		extremeWeight = 100
	}
	if normalWeight <= 0 {
		normalWeight = 1
	}

	return &ExponentialWeightGenerator{
		extremePercent: extremePercent,
		extremeWeight:  extremeWeight,
		normalWeight:   normalWeight,
	}
}

// GenerateWeights creates exponential weight distribution.
//
// For 1000 tasks with 5% extreme:
//   - 50 tasks (5%) get extreme weight (e.g., 100)
//   - 950 tasks (95%) get normal weight (1)
//
// Parameters:
//   - taskCount: Total number of tasks
//
// Returns:
//   - []int64: Slice of weights, extreme weights first
func (g *ExponentialWeightGenerator) GenerateWeights(taskCount int) []int64 {
	weights := make([]int64, taskCount)
	extremeCount := int(float64(taskCount) * g.extremePercent)

	for i := range taskCount {
		if i < extremeCount {
			weights[i] = g.extremeWeight
		} else {
			weights[i] = g.normalWeight
		}
	}

	return weights
}
