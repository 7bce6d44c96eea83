package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/sentinel"
)

// ConcurrentResult tallies outcomes of a RunConcurrent call.
type ConcurrentResult struct {
	Successes int32
	Conflicts int32
	NotFounds int32
	Errors    int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.NotFounds + r.Errors
}

// RunConcurrent starts goroutines copies of fn behind a shared barrier so
// they contend as closely as possible, then buckets the returned errors.
// Lifecycle conflicts (store conflicts and domain already_*/invalid_state
// codes) count as Conflicts.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, conflicts, notFounds, others atomic.Int32
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case isConflict(err):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound):
				notFounds.Add(1)
			default:
				others.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Conflicts: conflicts.Load(),
		NotFounds: notFounds.Load(),
		Errors:    others.Load(),
	}
}

func isConflict(err error) bool {
	if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrAlreadyUsed) {
		return true
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeConflict, dErrors.CodeInvalidState, dErrors.CodeAlreadyAnchored,
		dErrors.CodeAlreadyClaimed, dErrors.CodeAlreadyConsumed:
		return true
	}
	return false
}
