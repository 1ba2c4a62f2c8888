package broker

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterBurstThenDeny(t *testing.T) {
	r := NewRateLimiter(3, 3)

	for i := 0; i < 3; i++ {
		if !r.Allow() {
			t.Fatalf("burst token %d denied", i)
		}
	}
	if r.Allow() {
		t.Error("token granted beyond burst")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	r := NewRateLimiter(100, 1)

	if !r.Allow() {
		t.Fatal("first token denied")
	}
	if r.Allow() {
		t.Fatal("empty bucket granted a token")
	}

	time.Sleep(20 * time.Millisecond)
	if !r.Allow() {
		t.Error("bucket did not refill")
	}
}

func TestWaitBlocksUntilToken(t *testing.T) {
	r := NewRateLimiter(50, 1)
	ctx := context.Background()

	if err := r.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	start := time.Now()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("second Wait returned after %v, expected a refill delay", elapsed)
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	r := NewRateLimiter(0.001, 1)
	r.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := r.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Wait error = %v, want DeadlineExceeded", err)
	}
}
