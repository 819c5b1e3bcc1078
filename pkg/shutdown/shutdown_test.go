package shutdown

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/psantana5/bustcall/pkg/logging"
)

func TestShutdownRunsLIFOOnce(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	for _, name := range []string{"logger", "redis", "tracer"} {
		name := name
		m.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []string{"tracer", "redis", "logger"}, order)
}

func TestShutdownContinuesAfterError(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(logging.DEBUG, false)
	logger.SetOutput(&buf)

	m := New(time.Second, logger)
	ran := false
	m.Register("first", func(context.Context) error { ran = true; return nil })
	m.Register("broken", func(context.Context) error { return errors.New("boom") })

	m.Shutdown()

	assert.True(t, ran)
	assert.Contains(t, buf.String(), "shutdown hook failed")
	assert.Contains(t, buf.String(), "hook=broken")
}

func TestShutdownDeadline(t *testing.T) {
	m := New(10*time.Millisecond, nil)
	var got error
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return got
	})

	m.Shutdown()
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestCloseResource(t *testing.T) {
	assert.NoError(t, CloseResource(closer{}, "ok")(context.Background()))

	err := CloseResource(closer{err: errors.New("busy")}, "redis")(context.Background())
	assert.EqualError(t, err, "failed to close redis: busy")
}
