package slidingwindow

import (
	"context"
	"testing"
	"time"

	"github.com/alfreddev/ratelimit"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBackend(t *testing.T) (*Backend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func TestRetryAfter_AllowsUnderLimit(t *testing.T) {
	b, _ := newTestBackend(t)
	rule := ratelimit.FixedRule{Group: "default", Second: 2}

	for i := 0; i < 2; i++ {
		retry, err := b.RetryAfter(context.Background(), "/msg", "alice", rule)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if retry != 0 {
			t.Fatalf("request %d: retry = %d, want 0", i, retry)
		}
	}
}

func TestRetryAfter_DeniesOverLimit(t *testing.T) {
	b, _ := newTestBackend(t)
	rule := ratelimit.FixedRule{Group: "default", Second: 1}

	if retry, err := b.RetryAfter(context.Background(), "/msg", "alice", rule); err != nil || retry != 0 {
		t.Fatalf("first request: retry=%d err=%v, want 0/nil", retry, err)
	}

	retry, err := b.RetryAfter(context.Background(), "/msg", "alice", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry <= 0 {
		t.Fatalf("second request: retry = %d, want > 0", retry)
	}
}

func TestRetryAfter_SlidesRatherThanResetting(t *testing.T) {
	b, _ := newTestBackend(t)
	rule := ratelimit.FixedRule{Group: "default", Second: 2}

	start := time.Now()
	b.now = func() time.Time { return start }

	if _, err := b.RetryAfter(context.Background(), "/msg", "alice", rule); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.now = func() time.Time { return start.Add(600 * time.Millisecond) }
	if _, err := b.RetryAfter(context.Background(), "/msg", "alice", rule); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Inside the window of both hits: both entries are still counted, so a
	// third request is denied.
	b.now = func() time.Time { return start.Add(800 * time.Millisecond) }
	if retry, err := b.RetryAfter(context.Background(), "/msg", "alice", rule); err != nil || retry <= 0 {
		t.Fatalf("retry=%d err=%v, want > 0 mid-window", retry, err)
	}

	// The first hit has aged out but the second has not, so exactly one
	// slot is free. A window that reset as a whole at start+1s would
	// admit two requests here.
	b.now = func() time.Time { return start.Add(1200 * time.Millisecond) }
	retry, err := b.RetryAfter(context.Background(), "/msg", "alice", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry != 0 {
		t.Fatalf("retry = %d, want 0 once the oldest hit has slid out", retry)
	}
	if retry, err := b.RetryAfter(context.Background(), "/msg", "alice", rule); err != nil || retry <= 0 {
		t.Fatalf("retry=%d err=%v, want > 0 while the second hit is still in the window", retry, err)
	}
}

func TestRetryAfter_BlockingAppliesAcrossPaths(t *testing.T) {
	b, _ := newTestBackend(t)
	rule := ratelimit.FixedRule{Group: "default", Second: 1, BlockTime: 10 * time.Second}

	if _, err := b.RetryAfter(context.Background(), "/msg", "alice", rule); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	retry, err := b.RetryAfter(context.Background(), "/msg", "alice", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry != 10 {
		t.Fatalf("triggering denial: retry = %d, want block_time (10)", retry)
	}

	retry, err = b.RetryAfter(context.Background(), "/other", "alice", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry != 10 {
		t.Fatalf("a blocked user must be denied with block_time on every path, got %d", retry)
	}
}
