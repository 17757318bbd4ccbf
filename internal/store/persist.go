package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/heimdex-clips/internal/storage"
)

const writeTimeout = 5 * time.Second

// persister writes snapshots from a single goroutine. Only the newest pending
// snapshot is written; a nil value removes the item.
type persister struct {
	backend storage.Backend
	name    string
	logger  *slog.Logger

	mu     sync.Mutex
	latest *string
	dirty  bool

	wake     chan struct{}
	flushReq chan chan struct{}
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newPersister(backend storage.Backend, name string, logger *slog.Logger) *persister {
	p := &persister{
		backend:  backend,
		name:     name,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.writePending()
		case ack := <-p.flushReq:
			p.writePending()
			close(ack)
		case <-p.quit:
			p.writePending()
			return
		}
	}
}

func (p *persister) enqueue(value *string) {
	p.mu.Lock()
	p.latest = value
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) writePending() {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	value := p.latest
	p.dirty = false
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	if value == nil {
		err = p.backend.RemoveItem(ctx, p.name)
	} else {
		err = p.backend.SetItem(ctx, p.name, *value)
	}
	if err != nil {
		p.logger.Warn("failed to persist store snapshot", "name", p.name, "error", err)
	}
}

func (p *persister) flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case p.flushReq <- ack:
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	<-p.done
}
