// Package readiness blocks daemon startup until external dependencies
// are available.
package readiness

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"
)

// pollEvery is the interval between readiness checks.
const pollEvery = 100 * time.Millisecond

// TimeoutError reports a readiness check that did not succeed in time.
type TimeoutError struct {
	Resource string
	Elapsed  time.Duration
	Cause    error
}

func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s still unavailable after %s: %v", e.Resource, e.Elapsed, e.Cause)
	}
	return fmt.Sprintf("%s still unavailable after %s", e.Resource, e.Elapsed)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// Gate waits for a path and/or a TCP endpoint before the poll loop starts.
// It runs exactly once, at startup.
type Gate struct {
	Path    string // wait for this path to exist
	Addr    string // wait for a TCP connect to host:port to succeed
	Timeout time.Duration
}

// Wait blocks until every configured check succeeds, the timeout elapses,
// or the context is canceled. The path check runs first; its timeout
// prevents the socket check from running.
func (g Gate) Wait(ctx context.Context) error {
	if g.Path != "" {
		if err := g.waitPath(ctx); err != nil {
			return err
		}
	}
	if g.Addr != "" {
		if err := g.waitSock(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (g Gate) waitPath(ctx context.Context) error {
	deadline := time.Now().Add(g.Timeout)
	for {
		if _, err := os.Stat(g.Path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return &TimeoutError{
				Resource: fmt.Sprintf("path %q", g.Path),
				Elapsed:  g.Timeout,
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollEvery):
		}
	}
}

func (g Gate) waitSock(ctx context.Context) error {
	deadline := time.Now().Add(g.Timeout)
	var lastErr error
	for {
		conn, err := net.DialTimeout("tcp", g.Addr, pollEvery)
		if err == nil {
			conn.Close()
			return nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			return &TimeoutError{
				Resource: fmt.Sprintf("socket %q", g.Addr),
				Elapsed:  g.Timeout,
				Cause:    lastErr,
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollEvery):
		}
	}
}
