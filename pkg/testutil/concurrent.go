package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"suiverify/internal/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes     int32
	Errors        int32
	Conflicts     int32
	NotFounds     int32
	InvalidStates int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds + r.InvalidStates
}

// RunConcurrent executes fn in parallel goroutines and buckets each error by
// the sentinel it wraps.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg                                            sync.WaitGroup
		successes, errs, conflicts, notFounds, states atomic.Int32
	)

	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrNotFound):
				notFounds.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				states.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	wg.Wait()

	return &ConcurrentResult{
		Successes:     successes.Load(),
		Errors:        errs.Load(),
		Conflicts:     conflicts.Load(),
		NotFounds:     notFounds.Load(),
		InvalidStates: states.Load(),
	}
}
