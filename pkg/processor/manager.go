package processor

import (
	"context"
	"sync"
)

// ProcessorManager runs pipelines with bounded parallelism.
type ProcessorManager struct {
	workers int
}

// NewProcessorManager returns a manager running up to workers pipelines at
// once. Values below 1 mean strictly sequential.
func NewProcessorManager(workers int) *ProcessorManager {
	if workers < 1 {
		workers = 1
	}
	return &ProcessorManager{workers: workers}
}

// Workers returns the parallelism bound.
func (pm *ProcessorManager) Workers() int { return pm.workers }

// RunAll runs every pipeline and returns results and errors by pipeline
// index. With one worker, pipelines run in slice order. Pipelines not yet
// started when ctx is cancelled are skipped with ctx.Err().
func (pm *ProcessorManager) RunAll(ctx context.Context, pipelines []*Pipeline) ([]Result, []error) {
	results := make([]Result, len(pipelines))
	errs := make([]error, len(pipelines))

	run := func(i int) {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Source: pipelines[i].Source.Name()}
			errs[i] = err
			return
		}
		results[i], errs[i] = pipelines[i].Run(ctx)
	}

	if pm.workers == 1 {
		for i := range pipelines {
			run(i)
		}
		return results, errs
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < pm.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				run(i)
			}
		}()
	}
	for i := range pipelines {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results, errs
}
