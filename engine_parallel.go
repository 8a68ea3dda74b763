package baseliner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jward/baseliner/internal/analyzer"
	"github.com/jward/baseliner/internal/store"
)

// analyzeParallel fills slots using a bounded worker pool. Each worker owns
// its slot index, so no locking is needed and the caller assembles results
// in the original order. Cache writes are left to the caller so SQLite only
// sees one writer.
func (e *Engine) analyzeParallel(ctx context.Context, reg *analyzer.Registry, targets []target, slots []fileResult, fp store.Fingerprint, p *plan) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(e.workers, len(targets)))

	for i, t := range targets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			slots[i] = e.analyzeOne(gctx, reg, t, fp, p)
			return nil
		})
	}
	// Workers only fail on cancellation, which the caller reads from ctx.
	_ = g.Wait()
}
