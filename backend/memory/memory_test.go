package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alfreddev/ratelimit"
	"github.com/alfreddev/ratelimit/internal/clock"
)

func TestRetryAfter_AllowsUnderLimit(t *testing.T) {
	b := New()
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
	mock := clock.NewMock(time.Unix(0, 0))
	b := newWithClock(mock)
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

func TestRetryAfter_WindowResetsAfterExpiry(t *testing.T) {
	mock := clock.NewMock(time.Unix(0, 0))
	b := newWithClock(mock)
	rule := ratelimit.FixedRule{Group: "default", Second: 1}

	if _, err := b.RetryAfter(context.Background(), "/msg", "alice", rule); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry, _ := b.RetryAfter(context.Background(), "/msg", "alice", rule); retry == 0 {
		t.Fatal("expected the second request within the window to be denied")
	}

	mock.Advance(2 * time.Second)

	retry, err := b.RetryAfter(context.Background(), "/msg", "alice", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry != 0 {
		t.Fatalf("retry = %d, want 0 after window reset", retry)
	}
}

func TestRetryAfter_BlockingTakesPrecedence(t *testing.T) {
	mock := clock.NewMock(time.Unix(0, 0))
	b := newWithClock(mock)
	rule := ratelimit.FixedRule{Group: "default", Second: 1, BlockTime: 10 * time.Second}

	if _, err := b.RetryAfter(context.Background(), "/msg", "alice", rule); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	retry, err := b.RetryAfter(context.Background(), "/msg", "alice", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry != 10 {
		t.Fatalf("retry = %d, want 10 (block_time)", retry)
	}

	retry, err = b.RetryAfter(context.Background(), "/other", "alice", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry == 0 {
		t.Fatal("a blocked user must be denied on every path, not just the one that tripped the block")
	}
}

func TestRetryAfter_DifferentUsersIndependent(t *testing.T) {
	b := New()
	rule := ratelimit.FixedRule{Group: "default", Second: 1}

	if retry, _ := b.RetryAfter(context.Background(), "/msg", "alice", rule); retry != 0 {
		t.Fatalf("alice: retry = %d, want 0", retry)
	}
	if retry, _ := b.RetryAfter(context.Background(), "/msg", "bob", rule); retry != 0 {
		t.Fatalf("bob: retry = %d, want 0 (independent from alice)", retry)
	}
}
