package saga

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// RunAll executes independent sagas concurrently, at most limit at a time
// (limit <= 0 means unbounded). Results are returned in input order.
//
// A step failure in one saga does not stop the others. The returned error
// joins every compensation failure and re-execution error.
func RunAll(ctx context.Context, limit int, sagas ...*Saga) ([]*Result, error) {
	results := make([]*Result, len(sagas))
	errs := make([]error, len(sagas))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, s := range sagas {
		g.Go(func() error {
			results[i], errs[i] = s.Execute(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}
