package session

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunAll runs every request with at most limit sessions in flight. A limit
// of zero or less uses the configured concurrency. Results are returned in
// request order; the first error cancels the sessions still running.
func (c *Coordinator) RunAll(ctx context.Context, reqs []Request, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = c.cfg.Concurrency
	}
	if limit <= 0 {
		limit = 1
	}

	results := make([]*Result, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.Run(ctx, req)
			if err != nil {
				return fmt.Errorf("session %s/%s: %w", req.StudentID, req.Topic, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
