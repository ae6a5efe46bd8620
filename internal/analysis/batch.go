package analysis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/phonexa/pkg/types"
)

// MaxBatchSize is the largest number of requests [Service.AnalyzeBatch]
// accepts.
const MaxBatchSize = 32

// BatchItem is the outcome of one request in a batch. Exactly one of
// Analysis and Error is set.
type BatchItem struct {
	Analysis *types.Analysis `json:"analysis,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// AnalyzeBatch scores independent requests concurrently, at most
// BatchConcurrency at a time, and returns their outcomes in request order.
// A request that fails (invalid, oversize) only fails its own item; the
// batch fails as a whole only when ctx ends.
func (s *Service) AnalyzeBatch(ctx context.Context, reqs []Request) ([]BatchItem, error) {
	if len(reqs) > MaxBatchSize {
		return nil, fmt.Errorf("analysis: %w: batch of %d exceeds the limit of %d",
			ErrInputTooLarge, len(reqs), MaxBatchSize)
	}

	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	if n := s.settings.Load().opts.BatchConcurrency; n > 0 {
		g.SetLimit(n)
	}

	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Analyze(gctx, req)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				items[i] = BatchItem{Error: err.Error()}
				return nil
			}
			items[i] = BatchItem{Analysis: &res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis: batch: %w", err)
	}
	return items, nil
}
