package distributed

import (
	"context"
	"sync"

	"coursebundler/internal/core/domain"
)

// LocalBus delivers change events to subscribers inside this process.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[int]func(domain.ChangeEvent)
	nextID   int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		handlers: make(map[int]func(domain.ChangeEvent)),
	}
}

// Publish calls handlers synchronously; they are expected not to block.
func (b *LocalBus) Publish(ctx context.Context, event domain.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(event)
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, handler func(domain.ChangeEvent)) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
	return ctx.Err()
}

func (b *LocalBus) subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
