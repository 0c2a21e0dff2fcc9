package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// nodeTimeout determines the timeout for a node based on precedence:
//  1. the node's "nodeTimeoutMs" parameter
//  2. defaultTimeout (engine-wide default)
//  3. 0 (no timeout)
func nodeTimeout(n *Node, defaultTimeout time.Duration) time.Duration {
	if ms := n.IntParam("nodeTimeoutMs", 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	if defaultTimeout > 0 {
		return defaultTimeout
	}
	return 0
}

// invoke runs a behavior with timeout enforcement and panic recovery.
//
// The behavior runs on its own goroutine against a snapshot of n and a
// call-scoped error slot. Outputs and any fatal error are copied back only
// when the call returns in time. If the context ends first the call is
// abandoned: invoke returns immediately and the goroutine keeps writing to
// state nothing else reads.
func invoke(ctx context.Context, b Behavior, n *Node, params *GlobalParameters, timeout time.Duration) error {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	work := n.snapshot()
	callParams := params.scoped()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- b.Execute(callCtx, work, callParams)
	}()

	select {
	case err := <-done:
		n.adoptOutputs(work)
		if callParams.Failed() {
			params.Fail(callParams.Err())
		}
		return err
	case <-callCtx.Done():
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return &EngineError{
				Message: fmt.Sprintf("node %s exceeded timeout of %v", n.ID, timeout),
				Code:    "NODE_TIMEOUT",
			}
		}
		return ctx.Err()
	}
}
