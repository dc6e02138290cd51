package qos

import (
	"context"
	"sync"
)

// AdaptiveLimiter AIMD 并发控制
// 连续成功 limit 次后并发 +1；一次失败后并发降为 70%，不低于 min
type AdaptiveLimiter struct {
	mu       sync.Mutex
	limit    int
	min      int
	max      int
	inflight int
	streak   int           // 连续成功次数
	wake     chan struct{} // 容量可能变化时关闭并替换，唤醒等待者
}

// NewAdaptiveLimiter initial 会被修正到 [min, max]
func NewAdaptiveLimiter(initial, min, max int) *AdaptiveLimiter {
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}
	return &AdaptiveLimiter{
		limit: initial,
		min:   min,
		max:   max,
		wake:  make(chan struct{}),
	}
}

// Acquire 占用一个并发名额，ctx 取消时返回错误
func (l *AdaptiveLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.inflight < l.limit {
			l.inflight++
			l.mu.Unlock()
			return nil
		}
		wake := l.wake
		l.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryAcquire 不阻塞
func (l *AdaptiveLimiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight < l.limit {
		l.inflight++
		return true
	}
	return false
}

// Release 归还名额；缩容后超出的名额在归还时自然消化
func (l *AdaptiveLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight > 0 {
		l.inflight--
	}
	l.notify()
}

// OnSuccess 加性增长
func (l *AdaptiveLimiter) OnSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.streak++
	if l.streak >= l.limit {
		l.streak = 0
		if l.limit < l.max {
			l.limit++
			l.notify()
		}
	}
}

// OnFailure 乘性下降，通常由超时触发
func (l *AdaptiveLimiter) OnFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.limit * 7 / 10
	if next > l.limit-1 {
		next = l.limit - 1
	}
	if next < l.min {
		next = l.min
	}
	l.limit = next
	l.streak = 0
}

func (l *AdaptiveLimiter) CurrentLimit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

func (l *AdaptiveLimiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight
}

// notify 需持有锁
func (l *AdaptiveLimiter) notify() {
	close(l.wake)
	l.wake = make(chan struct{})
}
