package reporter

import (
	"sync"

	"padscan/internal/core/model"
)

// BufferedSink 暂存事件，并发扫描时整段输出，避免不同目标的输出交错
type BufferedSink struct {
	mu     sync.Mutex
	events []model.Event
}

func NewBufferedSink() *BufferedSink {
	return &BufferedSink{}
}

func (b *BufferedSink) Emit(e model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

// Flush 按原顺序重放到 dst 并清空
func (b *BufferedSink) Flush(dst model.Sink) {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.mu.Unlock()

	for _, e := range events {
		dst.Emit(e)
	}
}

// Len 已暂存的事件数
func (b *BufferedSink) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
