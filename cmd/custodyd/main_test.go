package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jmerrifield20/custodyledger/internal/custody"
	"github.com/jmerrifield20/custodyledger/internal/monitor"
)

func TestOriginChecker(t *testing.T) {
	if originChecker([]string{"http://a", " * "}) != nil {
		t.Error("wildcard origin should disable the check")
	}

	check := originChecker([]string{"http://a"})
	cases := map[string]bool{
		"":         true,
		"http://a": true,
		"http://b": false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest("GET", "/api/v1/ledger/stream", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := check(r); got != want {
			t.Errorf("origin %q: got %v, want %v", origin, got, want)
		}
	}
}

func TestStartMonitor_disabledIsAlreadyDone(t *testing.T) {
	session := custody.NewSession(custody.Config{}, zap.NewNop())
	mon := monitor.New(session, monitor.Config{}, zap.NewNop())

	select {
	case <-startMonitor(context.Background(), mon, 0):
	default:
		t.Fatal("disabled monitor should report done immediately")
	}
}

func TestStartMonitor_joinsAfterCancel(t *testing.T) {
	session := custody.NewSession(custody.Config{}, zap.NewNop())
	mon := monitor.New(session, monitor.Config{Interval: 2 * time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := startMonitor(ctx, mon, 2*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for mon.Last() == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if mon.Last() == nil {
		t.Fatal("monitor never ran a check")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}

	// Nothing may run after the join.
	checked := mon.Last().CheckedAt
	time.Sleep(10 * time.Millisecond)
	if !mon.Last().CheckedAt.Equal(checked) {
		t.Error("monitor checked the ledger after it was joined")
	}
}
