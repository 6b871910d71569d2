package testhelpers

import (
	"strings"
	"testing"
)

type testWriter struct {
	t testing.TB
}

// NewWriter returns a writer forwarding each write to t.Log so that log output is only shown for failing tests.
func NewWriter(t testing.TB) *testWriter { //nolint:revive // unexported return keeps the writer opaque.
	return &testWriter{t: t}
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
