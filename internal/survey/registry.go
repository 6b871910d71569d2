package survey

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/random"
)

const surveyIDLength uint = 24

type entry struct {
	controller *Controller
	cancel     context.CancelFunc
	lastUsed   time.Time
}

// Registry owns the running controllers of all visitor sessions.
type Registry struct {
	newConfig func() Config
	idleTTL   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	ctx     context.Context //nolint:containedctx // parent of every controller loop.
	entries map[string]*entry
}

// NewRegistry creates a registry whose controllers run under ctx. newConfig is called for every new session and
// controllers unused for idleTTL are stopped by [Registry.StartEvicting].
func NewRegistry(ctx context.Context, newConfig func() Config, idleTTL time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		newConfig: newConfig,
		idleTTL:   idleTTL,
		logger:    logger,
		now:       time.Now,
		mu:        sync.Mutex{},
		ctx:       ctx,
		entries:   map[string]*entry{},
	}
}

// Create starts a controller for a new session and returns its id.
func (r *Registry) Create() (string, *Controller, error) {
	id, err := random.Letters(surveyIDLength)
	if err != nil {
		return "", nil, errors.Wrap(err, "generate survey id")
	}
	c := New(r.newConfig())
	ctx, cancel := context.WithCancel(r.ctx)
	go func() {
		if err := c.Run(ctx); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "survey controller stopped", errors.SlogError(err))
		}
	}()

	r.mu.Lock()
	r.entries[id] = &entry{controller: c, cancel: cancel, lastUsed: r.now()}
	r.mu.Unlock()
	r.logger.LogAttrs(ctx, slog.LevelDebug, "survey created", slog.String("survey_id", id))
	return id, c, nil
}

// Get returns the controller of id and marks it as used.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.controller, true
}

// Len returns the number of running controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evict stops controllers idle for longer than the TTL and returns how many were stopped. Controllers with a
// submission in flight are kept until its outcome arrives.
func (r *Registry) Evict() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) && e.controller.Snapshot().State != StateSubmitting {
			e.cancel()
			delete(r.entries, id)
			evicted++
		}
	}
	return evicted
}

// StartEvicting runs [Registry.Evict] every interval until ctx is done.
func (r *Registry) StartEvicting(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			if n := r.Evict(); n > 0 {
				r.logger.LogAttrs(ctx, slog.LevelInfo, "evicted idle surveys", slog.Int("count", n))
			}
		}
	}
}
