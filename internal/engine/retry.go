package engine

import (
	"context"
	"time"
)

const retryBackoff = 2 * time.Millisecond

// retrier absorbs transient errors. Each block gets a fresh budget.
type retrier struct {
	budget  int
	onRetry func(err error)
}

// wait sleeps before retry number attempt (1-based). It returns err when
// err is not transient or the budget is spent, and ctx.Err() if cancelled
// while waiting.
func (r retrier) wait(ctx context.Context, attempt int, err error) error {
	if !isTransient(err) || attempt > r.budget {
		return err
	}
	if r.onRetry != nil {
		r.onRetry(err)
	}
	t := time.NewTimer(retryBackoff * time.Duration(attempt))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
