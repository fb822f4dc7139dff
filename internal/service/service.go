// Package service issues unique synthetic entities. It owns the per-kind
// generator handles, the contention lock registry and the capacity cache, and
// records every accepted entity in the ledger.
package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"pkg.jsn.cam/synthgen/internal/capacity"
	"pkg.jsn.cam/synthgen/internal/ledger"
	"pkg.jsn.cam/synthgen/internal/lockreg"
	"pkg.jsn.cam/synthgen/pkg/generators"
	"pkg.jsn.cam/synthgen/pkg/generators/registry"
	"pkg.jsn.cam/synthgen/pkg/synthgen"
	"pkg.jsn.cam/synthgen/pkg/synthgen/dictionary"
)

// DefaultMaxAttempts bounds consecutive duplicate candidates in one request.
const DefaultMaxAttempts = 10000

// Service is safe for concurrent use.
type Service struct {
	ledger   ledger.Ledger
	dicts    dictionary.Dictionaries
	registry *registry.Registry
	locks    *lockreg.Registry
	cache    *capacity.Cache
	logger   *slog.Logger

	maxAttempts      int
	now              func() time.Time
	newRand          func() *rand.Rand
	defaultProcessID string

	mu      sync.Mutex
	handles map[synthgen.Kind]*Generator
	closed  bool
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithRegistry(r *registry.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithMaxAttempts sets how many consecutive duplicates a request tolerates
// before it fails with a capacity error.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultProcessID sets the process id used when neither the caller nor
// the request names one.
func WithDefaultProcessID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.defaultProcessID = id
		}
	}
}

// WithSeed makes every request draw from a PCG source seeded with seed.
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		s.newRand = func() *rand.Rand {
			return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		}
	}
}

func New(l ledger.Ledger, dicts dictionary.Dictionaries, opts ...Option) *Service {
	s := &Service{
		ledger:           l,
		dicts:            dicts,
		registry:         registry.New(nil),
		locks:            lockreg.New(),
		cache:            capacity.New(),
		logger:           slog.Default(),
		maxAttempts:      DefaultMaxAttempts,
		now:              time.Now,
		defaultProcessID: uuid.NewString(),
		handles:          make(map[synthgen.Kind]*Generator),
	}
	s.newRand = func() *rand.Rand {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "service")
	return s
}

// Generator returns the handle for kind, building it on first use.
func (s *Service) Generator(kind synthgen.Kind) (*Generator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, synthgen.ErrClosed
	}
	if h, ok := s.handles[kind]; ok {
		return h, nil
	}

	impl, err := s.registry.Build(kind, generators.Deps{
		Dictionaries: s.dicts,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, err
	}

	h := &Generator{svc: s, impl: impl}
	s.handles[kind] = h
	s.logger.Debug("generator ready", "event", "service.generator", "kind", kind)
	return h, nil
}

// GetEntities resolves kind and issues entities for req.
func (s *Service) GetEntities(ctx context.Context, kind synthgen.Kind, req synthgen.Request, processID string, scope synthgen.Scope) ([]*synthgen.Entity, error) {
	g, err := s.Generator(kind)
	if err != nil {
		return nil, err
	}
	return g.GetEntities(ctx, req, processID, scope)
}

// KindInfo describes one registered generator.
type KindInfo struct {
	Kind        synthgen.Kind `json:"kind"`
	Description string        `json:"description"`
}

func (s *Service) Kinds() []KindInfo {
	kinds := s.registry.List()
	out := make([]KindInfo, 0, len(kinds))
	for _, k := range kinds {
		desc, err := s.registry.Description(k)
		if err != nil {
			continue
		}
		out = append(out, KindInfo{Kind: k, Description: desc})
	}
	return out
}

// DefaultProcessID is the process id stamped on requests that carry none.
func (s *Service) DefaultProcessID() string {
	return s.defaultProcessID
}

// Shutdown clears the capacity cache, the lock registry and every handle.
// Closed handles stay closed; callers fetch new ones through Generator.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.handles {
		h.closed.Store(true)
	}
	clear(s.handles)
	s.cache.Reset()
	s.locks.Reset()
	s.logger.Info("service state cleared", "event", "service.shutdown")
}

// Close shuts the service down and closes the ledger.
func (s *Service) Close() error {
	s.Shutdown()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return synthgen.StorageError("close ledger", s.ledger.Close())
}

func (s *Service) release(h *Generator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.handles[h.impl.Kind()]; ok && cur == h {
		delete(s.handles, h.impl.Kind())
	}
}
