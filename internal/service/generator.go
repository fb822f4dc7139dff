package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"pkg.jsn.cam/synthgen/internal/capacity"
	"pkg.jsn.cam/synthgen/internal/ledger"
	"pkg.jsn.cam/synthgen/internal/lockreg"
	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
)

// Generator is the service-side handle of one variant.
type Generator struct {
	svc    *Service
	impl   generators.Generator
	closed atomic.Bool
}

func (g *Generator) Kind() synthgen.Kind { return g.impl.Kind() }

func (g *Generator) Description() string { return g.impl.Description() }

// Close releases the handle. Later calls on it fail with synthgen.ErrClosed.
func (g *Generator) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	g.svc.release(g)
	return nil
}

// GetEntities returns req.Count entities, reusing the ones already issued
// under the same blur id when req.Reuse is set. Entities accepted before an
// error stay in the ledger; the error covers the rest of the request.
func (g *Generator) GetEntities(ctx context.Context, req synthgen.Request, processID string, scope synthgen.Scope) ([]*synthgen.Entity, error) {
	if g.closed.Load() {
		return nil, synthgen.ErrClosed
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := g.impl.Validate(req.Params); err != nil {
		return nil, err
	}

	s := g.svc
	kind := g.impl.Kind()
	if req.ProcessID != "" {
		processID = req.ProcessID
	}
	if processID == "" {
		processID = s.defaultProcessID
	}

	release, err := s.locks.Acquire(ctx, lockreg.Token{Kind: kind, BlurID: req.BlurID})
	if err != nil {
		return nil, err
	}
	defer release()

	r := &run{
		gen:       g,
		req:       req,
		kind:      kind,
		processID: processID,
		scope:     scope,
		partition: g.impl.PartitionKey(req.Params),
	}
	r.filter, r.checked = ledger.ScopeFilter(scope, processID)
	return r.execute(ctx)
}

// run is the state of one GetEntities call. It only lives while the token
// lock is held.
type run struct {
	gen       *Generator
	req       synthgen.Request
	kind      synthgen.Kind
	processID string
	scope     synthgen.Scope
	partition string
	filter    string
	checked   bool

	out        []*synthgen.Entity
	iteration  int
	collisions int
	reused     int
}

func (r *run) execute(ctx context.Context) ([]*synthgen.Entity, error) {
	s := r.gen.svc
	logger := s.logger.With("kind", r.kind, "blur_id", r.req.BlurID, "process_id", r.processID)

	r.out = make([]*synthgen.Entity, 0, r.req.Count)
	if r.req.Reuse {
		prior, err := s.ledger.Lookup(ctx, ledger.LookupQuery{
			Kind:      r.kind,
			BlurID:    r.req.BlurID,
			ProcessID: r.filter,
			Partition: r.partition,
			Limit:     r.req.Count,
		})
		if err != nil {
			return nil, err
		}
		r.reused = len(prior)
		r.out = append(r.out, prior...)
		if len(r.out) >= r.req.Count {
			logger.Debug("request served from ledger", "event", "service.reuse", "count", len(r.out))
			return r.out, nil
		}
	}

	rng := s.newRand()
	r.iteration = 1
	for len(r.out) < r.req.Count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.checkCapacity(ctx); err != nil {
			logger.Warn("capacity exhausted", "event", "service.capacity", "partition", r.partition, "error", err)
			return nil, err
		}

		call := &synthgen.Call{
			Params:    r.req.Params,
			ProcessID: r.processID,
			Scope:     r.scope,
			Iteration: r.iteration,
			Rand:      rng,
		}
		r.iteration++

		e, err := r.gen.impl.Generate(call)
		if err != nil {
			return nil, fmt.Errorf("%s: generate: %w", r.kind, err)
		}

		dup, err := r.isIssued(ctx, e)
		if err != nil {
			return nil, err
		}
		if dup {
			if err := r.gen.impl.Revoke(e); err != nil {
				logger.Warn("revoke failed", "event", "service.revoke", "hash", e.Hash, "error", err)
			}
			r.collisions++
			if r.collisions > s.maxAttempts {
				return nil, &synthgen.CapacityError{
					Kind:      r.kind,
					Partition: r.partition,
					Requested: r.req.Count - len(r.out),
					Reason:    fmt.Sprintf("%d consecutive duplicate candidates", r.collisions),
				}
			}
			continue
		}
		r.collisions = 0

		if err := r.accept(ctx, e); err != nil {
			return nil, err
		}
	}

	logger.Info("entities issued",
		"event", "service.issue",
		"count", len(r.out),
		"reused", r.reused,
		"candidates", r.iteration-1,
	)
	return r.out, nil
}

func (r *run) cacheKey(process string) capacity.Key {
	return capacity.Key{Kind: r.kind, Process: process, Partition: r.partition}
}

func (r *run) checkCapacity(ctx context.Context) error {
	if !r.checked || r.partition == synthgen.UnboundedPartition {
		return nil
	}
	s := r.gen.svc

	issued, err := s.cache.Issued(ctx, r.cacheKey(r.filter), func(ctx context.Context) (int64, error) {
		return s.ledger.Count(ctx, r.kind, r.partition, r.filter)
	})
	if err != nil {
		return err
	}

	needed := r.req.Count - len(r.out)
	remaining := max(r.gen.impl.Capacity(r.req.Params)-issued, 0)
	if remaining < int64(needed) {
		return &synthgen.CapacityError{
			Kind:      r.kind,
			Partition: r.partition,
			Requested: needed,
			Remaining: remaining,
		}
	}
	return nil
}

func (r *run) isIssued(ctx context.Context, e *synthgen.Entity) (bool, error) {
	if !r.checked {
		return false, nil
	}
	return r.gen.svc.ledger.Exists(ctx, r.kind, e.Hash, r.filter)
}

func (r *run) accept(ctx context.Context, e *synthgen.Entity) error {
	s := r.gen.svc
	rec := ledger.NewRecord(e, r.kind, r.partition, r.req.BlurID, r.processID, s.now())
	fresh, err := s.ledger.Issue(ctx, e, rec)
	if err != nil {
		return err
	}

	// Counts are distinct hashes, so a repeat of a known hash grows nothing.
	if fresh.Partition {
		s.cache.Increment(r.cacheKey(ledger.AllProcesses))
	}
	if fresh.Process {
		s.cache.Increment(r.cacheKey(r.processID))
	}

	r.out = append(r.out, e)
	return nil
}
