// Package shutdown runs cleanup hooks exactly once before the process ends.
package shutdown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/psantana5/bustcall/pkg/logging"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Manager collects cleanup functions and runs them in reverse order
type Manager struct {
	mu      sync.Mutex
	hooks   []hook
	timeout time.Duration
	logger  *logging.Logger
	once    sync.Once
}

// New creates a manager. All hooks share one deadline of timeout.
func New(timeout time.Duration, logger *logging.Logger) *Manager {
	return &Manager{timeout: timeout, logger: logger}
}

// Register adds a hook. Hooks run LIFO, so register what others depend on
// (the logger, connections) first.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Shutdown runs every hook once. Later calls are no-ops, which lets both the
// normal return path and the restart path call it.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.mu.Lock()
		hooks := append([]hook(nil), m.hooks...)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		for i := len(hooks) - 1; i >= 0; i-- {
			h := hooks[i]
			if err := h.fn(ctx); err != nil && m.logger != nil {
				m.logger.Warn("shutdown hook failed", map[string]interface{}{
					"hook":  h.name,
					"error": err.Error(),
				})
			}
		}
	})
}

// CloseResource adapts an io.Closer style resource into a hook
func CloseResource(closer interface{ Close() error }, name string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", name, err)
		}
		return nil
	}
}
