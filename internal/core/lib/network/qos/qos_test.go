package qos

import (
	"context"
	"testing"
	"time"
)

func TestAdaptiveLimiter_Increase(t *testing.T) {
	// 初始 10, 最小 1, 最大 20
	l := NewAdaptiveLimiter(10, 1, 20)

	for i := 0; i < 10; i++ {
		l.OnSuccess()
	}
	if l.CurrentLimit() != 11 {
		t.Errorf("Expected limit increase to 11, got %d", l.CurrentLimit())
	}

	for i := 0; i < 11; i++ {
		l.OnSuccess()
	}
	if l.CurrentLimit() != 12 {
		t.Errorf("Expected limit increase to 12, got %d", l.CurrentLimit())
	}
}

func TestAdaptiveLimiter_Ceiling(t *testing.T) {
	l := NewAdaptiveLimiter(2, 1, 2)
	for i := 0; i < 10; i++ {
		l.OnSuccess()
	}
	if l.CurrentLimit() != 2 {
		t.Errorf("limit should stay at max 2, got %d", l.CurrentLimit())
	}
}

func TestAdaptiveLimiter_Decrease(t *testing.T) {
	l := NewAdaptiveLimiter(100, 1, 200)
	l.OnFailure()
	if l.CurrentLimit() != 70 {
		t.Errorf("Expected limit decrease to 70, got %d", l.CurrentLimit())
	}

	small := NewAdaptiveLimiter(2, 1, 10)
	small.OnFailure()
	if small.CurrentLimit() != 1 {
		t.Errorf("Expected limit 1, got %d", small.CurrentLimit())
	}
	small.OnFailure()
	if small.CurrentLimit() != 1 {
		t.Errorf("limit should not go below min, got %d", small.CurrentLimit())
	}
}

func TestAdaptiveLimiter_AcquireRelease(t *testing.T) {
	l := NewAdaptiveLimiter(2, 1, 10)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if l.TryAcquire() {
		t.Fatal("third acquire should not succeed")
	}

	done := make(chan struct{})
	go func() {
		if err := l.Acquire(ctx); err == nil {
			close(done)
		}
	}()

	select {
	case <-done:
		t.Fatal("acquire should block while limit is reached")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocked acquire was not woken by release")
	}
}

func TestAdaptiveLimiter_AcquireCancelled(t *testing.T) {
	l := NewAdaptiveLimiter(1, 1, 1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestAdaptiveLimiter_ShrinkWhileBusy(t *testing.T) {
	l := NewAdaptiveLimiter(5, 1, 100)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
	}

	// 5 -> 3，已借出的 5 个名额仍然有效
	l.OnFailure()
	if l.CurrentLimit() != 3 {
		t.Errorf("Limit should be 3, got %d", l.CurrentLimit())
	}

	// 归还到 3 个以内之前都不能再获取
	l.Release()
	l.Release()
	if l.TryAcquire() {
		t.Fatal("inflight 3 with limit 3 should block")
	}
	l.Release()
	if !l.TryAcquire() {
		t.Fatal("inflight 2 with limit 3 should admit one more")
	}
	if l.InFlight() != 3 {
		t.Errorf("InFlight should be 3, got %d", l.InFlight())
	}
}
