// Package execution holds the invocation strategies of page object trees.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agentic-research/pagetree/internal/logging"
)

// Settler is implemented by test contexts that can report when the
// application under test has finished its pending work.
type Settler interface {
	Settle(ctx context.Context) error
}

// Immediate runs actions as soon as they are invoked. Waiting for the
// application is left to the caller.
type Immediate struct{}

func (Immediate) Invoke(ctx context.Context, _ any, act func(context.Context) error) error {
	return act(ctx)
}

// Settle waits for the test context when it can settle, and returns at once otherwise.
func (Immediate) Settle(ctx context.Context, testContext any) error {
	return settle(ctx, testContext)
}

// Chained waits for the application to settle before every action, so that
// consecutive chained actions never overlap with pending work.
type Chained struct {
	// Timeout bounds each wait. Zero means no bound besides ctx.
	Timeout time.Duration
	Log     logrus.FieldLogger
}

func (c Chained) Invoke(ctx context.Context, testContext any, act func(context.Context) error) error {
	if err := c.Settle(ctx, testContext); err != nil {
		return err
	}
	return act(ctx)
}

func (c Chained) Settle(ctx context.Context, testContext any) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	start := time.Now()
	err := settle(ctx, testContext)
	logging.OrDiscard(c.Log).WithField("elapsed", time.Since(start)).Debug("settled")
	return err
}

func settle(ctx context.Context, testContext any) error {
	s, ok := testContext.(Settler)
	if !ok {
		return nil
	}
	if err := s.Settle(ctx); err != nil {
		return fmt.Errorf("wait for settled state: %w", err)
	}
	return nil
}
