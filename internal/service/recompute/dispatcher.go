package recompute

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type trigger struct {
	chunkID uuid.UUID
	forced  bool
}

// Dispatcher fans recompute triggers out to a bounded worker pool. Workers
// pick up triggers for different chunks in parallel; the service's
// per-chunk lock keeps same-chunk triggers serialized even when two land
// on different workers.
type Dispatcher struct {
	svc      *Service
	workers  int
	triggers chan trigger
}

// NewDispatcher creates a dispatcher with the given worker count.
func NewDispatcher(svc *Service, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		svc:      svc,
		workers:  workers,
		triggers: make(chan trigger, workers*4),
	}
}

// Enqueue hands a trigger to the pool, blocking for backpressure when all
// workers are busy and the buffer is full. Satisfies events.RecomputeFunc.
func (d *Dispatcher) Enqueue(ctx context.Context, chunkID uuid.UUID, forced bool) error {
	select {
	case d.triggers <- trigger{chunkID: chunkID, forced: forced}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes triggers until the context is canceled. Recompute errors
// are logged per chunk, not returned: one bad chunk must not stop the
// worker pool.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case t := <-d.triggers:
					if err := d.svc.Recompute(ctx, t.chunkID, t.forced); err != nil {
						log.Error().
							Err(err).
							Str("chunkId", t.chunkID.String()).
							Msg("Recompute failed")
					}
				}
			}
		})
	}

	return g.Wait()
}
