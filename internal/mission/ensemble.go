package mission

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/metrics"
)

// Ensemble repeats one configuration over consecutive seeds. Every run
// builds its own plant, filter, noise source and controller.
type Ensemble struct {
	base    *config.Config
	numRuns int
	workers int
}

func NewEnsemble(cfg *config.Config, numRuns int) *Ensemble {
	return &Ensemble{base: cfg.Clone(), numRuns: numRuns, workers: runtime.NumCPU()}
}

// Workers bounds the number of concurrent runs.
func (e *Ensemble) Workers(n int) *Ensemble {
	if n > 0 {
		e.workers = n
	}
	return e
}

// EnsembleResult holds per-seed results in seed order.
type EnsembleResult struct {
	Seeds   []uint64
	Results []*Result
	Summary []metrics.Summary
}

func (e *Ensemble) Run(ctx context.Context) (*EnsembleResult, error) {
	if e.numRuns < 1 {
		return nil, fmt.Errorf("ensemble: need at least one run, got %d", e.numRuns)
	}

	out := &EnsembleResult{
		Seeds:   make([]uint64, e.numRuns),
		Results: make([]*Result, e.numRuns),
	}
	errs := make([]error, e.numRuns)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(e.workers, e.numRuns); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				cfg := e.base.Clone()
				cfg.Seed = e.base.Seed + uint64(idx)
				out.Seeds[idx] = cfg.Seed

				r, err := Build(cfg, WithoutRecords())
				if err != nil {
					errs[idx] = err
					continue
				}
				out.Results[idx], errs[idx] = r.Run(ctx)
			}
		}()
	}

feed:
	for i := 0; i < e.numRuns; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runs := make([]map[string]float64, len(out.Results))
	for i, r := range out.Results {
		runs[i] = r.Metrics
	}
	out.Summary = metrics.Summarize(runs)
	return out, nil
}
