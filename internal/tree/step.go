package tree

import "context"

// Step is the result of invoking an action. Further actions invoked on a step
// run on the chained tree and therefore wait for the application to settle.
type Step struct {
	node        *Node
	testContext any
	invoker     Invoker
	err         error
}

// Err returns the error of the invocation, if any.
func (s *Step) Err() error { return s.err }

// Node returns the node further steps are invoked on.
func (s *Step) Node() *Node { return s.node }

// Wait blocks until the invocation has settled.
func (s *Step) Wait(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	return s.invoker.Settle(ctx, s.testContext)
}

// Do invokes name on the chained counterpart of the node the step came from.
// A failed step short-circuits every following one.
func (s *Step) Do(ctx context.Context, name string, args ...any) *Step {
	if s.err != nil {
		return s
	}
	return s.node.Do(ctx, name, args...)
}

// Then invokes name on the chained counterpart of the child at path.
func (s *Step) Then(ctx context.Context, child string, name string, args ...any) *Step {
	if s.err != nil {
		return s
	}
	c := s.node.Child(child)
	if c == nil {
		return &Step{node: s.node, testContext: s.testContext, invoker: s.invoker, err: noChild(s.node, child)}
	}
	return c.Do(ctx, name, args...)
}
