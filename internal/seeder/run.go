package seeder

import (
	"context"
	"errors"
	"fmt"
)

// RunAll runs seeders one after another and returns every result.
//
// A seeder that aborts (fixture or reset failure) does not stop the ones after it; its error is
// joined into the returned error. Cancellation stops the run before the next seeder starts.
func RunAll(ctx context.Context, seeders []Seeder, opts Options) ([]*Result, error) {
	results := make([]*Result, 0, len(seeders))
	var errs []error

	for _, s := range seeders {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := s.Seed(ctx, opts)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}

	return results, errors.Join(errs...)
}

// ErrorCount sums the per-record errors across results.
func ErrorCount(results []*Result) int {
	n := 0
	for _, r := range results {
		n += len(r.Errors)
	}
	return n
}
