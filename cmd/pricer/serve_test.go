package main

import (
	"testing"
	"time"

	"github.com/zero-given/site33/internal/dex"
)

func TestRequestBudgetCoversBackoff(t *testing.T) {
	opts := dex.CallOptions{Timeout: 10 * time.Second, MaxAttempts: 3, BackoffBase: 250 * time.Millisecond}

	got := requestBudget(opts)
	// Three sequential calls, each 3 attempts plus 250ms and 500ms sleeps.
	want := 3 * (30*time.Second + 750*time.Millisecond)
	if got != want {
		t.Fatalf("budget: got %s want %s", got, want)
	}
	if got <= 3*3*opts.Timeout {
		t.Fatalf("budget must exceed the attempt timeouts alone")
	}
}
