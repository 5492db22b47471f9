package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// StreamHeaderLen is the size of the length prefix stream links put in
// front of each packet.
const StreamHeaderLen = 4

// MaxStreamPacket bounds a stream packet when no smaller limit is set, so
// a peer's length prefix can never ask for more than this.
const MaxStreamPacket = 1 << 20

var (
	ErrShortHeader = errors.New("transport: short stream header")
	// ErrStreamBroken means part of a frame reached the writer. The
	// stream is misaligned from there on and is never retried.
	ErrStreamBroken = errors.New("transport: stream broken mid-packet")
)

func streamLimit(maxPacket int) int {
	if maxPacket <= 0 || maxPacket > MaxStreamPacket {
		return MaxStreamPacket
	}
	return maxPacket
}

// StreamSender carries packet boundaries over a byte stream by writing
// each packet as [u32 big-endian length][packet] in a single Write.
type StreamSender struct {
	mu     sync.Mutex
	w      io.Writer
	max    int
	frame  []byte
	broken error
}

// NewStreamSender writes to w; maxPacket <= 0 means MaxStreamPacket.
func NewStreamSender(w io.Writer, maxPacket int) *StreamSender {
	return &StreamSender{w: w, max: streamLimit(maxPacket)}
}

// Send writes one frame. A write that fails before any byte is accepted
// can be retried; once a partial frame is out every Send returns
// ErrStreamBroken.
func (s *StreamSender) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken != nil {
		return s.broken
	}
	if len(b) > s.max {
		return fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, len(b), s.max)
	}
	need := StreamHeaderLen + len(b)
	if cap(s.frame) < need {
		s.frame = make([]byte, need)
	}
	frame := s.frame[:need]
	binary.BigEndian.PutUint32(frame, uint32(len(b)))
	copy(frame[StreamHeaderLen:], b)
	n, err := s.w.Write(frame)
	if err == nil && n < need {
		err = io.ErrShortWrite
	}
	if err != nil && n > 0 {
		s.broken = fmt.Errorf("%w: wrote %d of %d bytes: %v", ErrStreamBroken, n, need, err)
		return s.broken
	}
	return err
}

// StreamReceiver reads packets written by a StreamSender.
type StreamReceiver struct {
	r   io.Reader
	max int
}

// NewStreamReceiver reads from r; maxPacket <= 0 means MaxStreamPacket.
func NewStreamReceiver(r io.Reader, maxPacket int) *StreamReceiver {
	return &StreamReceiver{r: r, max: streamLimit(maxPacket)}
}

// Receive returns the next packet. A stream ending between packets yields
// io.EOF. ctx is checked before each read; a read in progress is not
// interrupted, so close the underlying reader to unblock it.
func (s *StreamReceiver) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var hdr [StreamHeaderLen]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if uint64(n) > uint64(s.max) {
		return nil, fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, n, s.max)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(s.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}
