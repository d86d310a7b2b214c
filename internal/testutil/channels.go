// Package testutil provides shared test helpers for birdobs packages.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Test timeouts
const (
	DefaultTestTimeout = 5 * time.Second
	ShortTestTimeout   = 1 * time.Second
)

// WaitForChannel waits for ch to be signalled or closed, failing after timeout
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// Receive returns the next value from ch, failing after timeout
func Receive[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for value", "after %s", timeout)
	}
	var zero T
	return zero
}
