package workload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/David-Tong/consistent-hashing-scheduler/internal/logging"
	"github.com/David-Tong/consistent-hashing-scheduler/types"
)

// Assigner schedules a single task.
//
// *chs.Scheduler and *intake.Client both satisfy it.
type Assigner interface {
	ScheduleTask(task types.Task) (*types.Server, error)
}

// ErrInvalidRunnerConfig is returned by NewRunner for an unusable configuration.
var ErrInvalidRunnerConfig = errors.New("invalid runner configuration")

// RunnerConfig controls the shape of a workload run.
type RunnerConfig struct {
	// Runners is the number of concurrent goroutines.
	Runners int `yaml:"runners"`

	// TasksPerRunner is the batch size each runner generates once.
	TasksPerRunner int `yaml:"tasksPerRunner"`

	// Rounds is how many times each runner schedules its batch.
	Rounds int `yaml:"rounds"`

	// Pause is the sleep between two rounds of one runner.
	Pause time.Duration `yaml:"pause"`

	// ReportEvery logs progress every N scheduled tasks per runner (0 disables).
	ReportEvery int `yaml:"reportEvery"`
}

// Result summarizes a workload run.
type Result struct {
	Scheduled int64
	Failed    int64
	Weight    int64
	Duration  time.Duration
}

// Runner drives an Assigner with concurrent task batches.
type Runner struct {
	cfg       RunnerConfig
	assigner  Assigner
	generator *Generator
	logger    types.Logger
}

// NewRunner creates a workload runner.
//
// Parameters:
//   - cfg: Run shape
//   - assigner: Target receiving ScheduleTask calls
//   - generator: Task source shared by every runner
//   - logger: Logger for progress reports and failures (nil disables logging)
//
// Returns:
//   - *Runner: Runner ready to Run
//   - error: ErrInvalidRunnerConfig (wrapped) when a count is not positive
func NewRunner(cfg RunnerConfig, assigner Assigner, generator *Generator, logger types.Logger) (*Runner, error) {
	switch {
	case cfg.Runners < 1:
		return nil, fmt.Errorf("%w: runners must be >= 1, got %d", ErrInvalidRunnerConfig, cfg.Runners)
	case cfg.TasksPerRunner < 1:
		return nil, fmt.Errorf("%w: tasksPerRunner must be >= 1, got %d", ErrInvalidRunnerConfig, cfg.TasksPerRunner)
	case cfg.Rounds < 1:
		return nil, fmt.Errorf("%w: rounds must be >= 1, got %d", ErrInvalidRunnerConfig, cfg.Rounds)
	case cfg.Pause < 0:
		return nil, fmt.Errorf("%w: pause must be >= 0, got %v", ErrInvalidRunnerConfig, cfg.Pause)
	}

	if logger == nil {
		logger = logging.NewNop()
	}

	return &Runner{
		cfg:       cfg,
		assigner:  assigner,
		generator: generator,
		logger:    logger,
	}, nil
}

// Run starts every runner and waits for them to finish.
//
// Cancelling ctx stops runners between tasks and interrupts pauses. Failed
// ScheduleTask calls are logged and counted, never retried.
//
// Returns:
//   - Result: Totals across all runners
//   - error: ctx.Err() when the run was cancelled, nil otherwise
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	var scheduled, failed, weight atomic.Int64

	var wg sync.WaitGroup
	for id := range r.cfg.Runners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runOne(ctx, id, &scheduled, &failed, &weight)
		}()
	}
	wg.Wait()

	result := Result{
		Scheduled: scheduled.Load(),
		Failed:    failed.Load(),
		Weight:    weight.Load(),
		Duration:  time.Since(start),
	}

	return result, ctx.Err()
}

func (r *Runner) runOne(ctx context.Context, id int, scheduled, failed, weight *atomic.Int64) {
	tasks := r.generator.Generate(r.cfg.TasksPerRunner)

	count := 0
	lastReport := time.Now()

	for round := range r.cfg.Rounds {
		for _, task := range tasks {
			if ctx.Err() != nil {
				return
			}

			if _, err := r.assigner.ScheduleTask(task); err != nil {
				failed.Add(1)
				r.logger.Error("schedule task failed", "runner", id, "task", task.ID, "error", err)

				continue
			}
			scheduled.Add(1)
			weight.Add(task.Weight)

			count++
			if r.cfg.ReportEvery > 0 && count%r.cfg.ReportEvery == 0 {
				r.logger.Debug("runner progress", "runner", id, "count", count, "elapsed", time.Since(lastReport))
				lastReport = time.Now()
			}
		}

		if round < r.cfg.Rounds-1 && r.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.cfg.Pause):
			}
		}
	}
}
