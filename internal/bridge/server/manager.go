package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/carbridge-io/carbridge/pkg/log"
)

// Runnable is a long-running component owned by the Manager: an ingress
// server or a per-vehicle poll loop. Start blocks until ctx is canceled or
// the component fails.
type Runnable interface {
	Name() string
	Start(ctx context.Context) error
}

// Manager runs all registered components as one group. The first failure
// cancels the shared context so the remaining components shut down.
type Manager struct {
	runnables []Runnable
}

// NewManager creates a Manager over the given runnables.
func NewManager(runnables ...Runnable) *Manager {
	return &Manager{runnables: runnables}
}

// Start blocks until every runnable has returned and reports the first error.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, r := range m.runnables {
		r := r
		g.Go(func() error {
			log.Info("Starting component", "name", r.Name())
			err := r.Start(ctx)
			if err != nil {
				log.Error(err, "Component failed", "name", r.Name())
			} else {
				log.Info("Component stopped", "name", r.Name())
			}
			return err
		})
	}

	return g.Wait()
}
