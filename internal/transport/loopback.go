package transport

import (
	"bytes"
	"context"
	"sync"
)

// Loopback is an in-memory link: packets sent on it are received from it in
// order. Send never blocks; a full buffer returns ErrBackpressure.
type Loopback struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

func NewLoopback(depth int) *Loopback {
	if depth < 1 {
		depth = 1
	}
	return &Loopback{
		ch:   make(chan []byte, depth),
		done: make(chan struct{}),
	}
}

// Send queues a copy of b.
func (l *Loopback) Send(b []byte) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.ch <- bytes.Clone(b):
		return nil
	default:
		return ErrBackpressure
	}
}

// Receive returns the next packet. Packets queued before Close are still
// delivered; after that ErrClosed is returned.
func (l *Loopback) Receive(ctx context.Context) ([]byte, error) {
	select {
	case b := <-l.ch:
		return b, nil
	case <-l.done:
		select {
		case b := <-l.ch:
			return b, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loopback) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}
