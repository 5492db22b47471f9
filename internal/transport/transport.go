// Package transport adapts encoded packets to the links that carry them.
//
// A Sender is the send functor: it receives one fully encoded packet per
// call and must neither retain nor mutate the slice after returning.
package transport

import (
	"context"
	"errors"
	"io"
)

var (
	ErrClosed         = errors.New("transport: closed")
	ErrBackpressure   = errors.New("transport: link buffer full")
	ErrPacketTooLarge = errors.New("transport: packet exceeds max size")
	ErrShortBuffer    = errors.New("transport: packet did not fit scratch buffer")
)

// Sender moves one encoded packet onto a link.
type Sender interface {
	Send(b []byte) error
}

// Receiver yields one packet per call from a link.
type Receiver interface {
	Receive(ctx context.Context) ([]byte, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(b []byte) error

func (f SenderFunc) Send(b []byte) error { return f(b) }

type writerSender struct {
	w io.Writer
}

// WriterSender sends each packet with a single Write on w. Packet
// boundaries are not preserved; the link must carry them out of band.
func WriterSender(w io.Writer) Sender {
	return writerSender{w: w}
}

func (s writerSender) Send(b []byte) error {
	n, err := s.w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}
