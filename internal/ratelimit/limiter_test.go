package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestSharedLimiterSpacesRequests(t *testing.T) {
	l := NewShared(50 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	// First token is free; the next two take one interval each
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("3 waits took %v, want at least ~100ms", elapsed)
	}
}

func TestSharedLimiterDisabled(t *testing.T) {
	l := NewShared(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("disabled limiter blocked for %v", elapsed)
	}
	if l.Interval() != 0 {
		t.Errorf("Interval() = %v, want 0", l.Interval())
	}
}

func TestSharedLimiterHonorsContext(t *testing.T) {
	l := NewShared(time.Hour)
	l.Allow() // drain the single token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("Wait should fail once the context expires")
	}
}

func TestSetInterval(t *testing.T) {
	l := NewShared(time.Hour)
	l.SetInterval(0)
	l.Allow()
	if !l.Allow() {
		t.Error("limiter should be unlimited after SetInterval(0)")
	}
}
