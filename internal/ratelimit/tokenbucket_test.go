package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"FuelStream/internal/ratelimit"
)

func TestWait_BurstImmediate(t *testing.T) {
	tb := ratelimit.NewTokenBucket(1, 3)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := tb.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("burst calls should not block, took %s", elapsed)
	}
}

func TestEvery_PacesSecondCall(t *testing.T) {
	interval := 50 * time.Millisecond
	tb := ratelimit.Every(interval)

	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < interval/2 {
		t.Errorf("second call should be paced, waited only %s", elapsed)
	}
}

func TestEvery_ZeroIntervalUnlimited(t *testing.T) {
	tb := ratelimit.Every(0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := tb.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("unlimited bucket blocked for %s", elapsed)
	}
}

func TestWait_ContextCanceled(t *testing.T) {
	tb := ratelimit.Every(time.Hour)
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}
