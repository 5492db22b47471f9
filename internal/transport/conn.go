package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/danmuck/compacket/internal/observability"
	"github.com/rs/zerolog/log"
)

// Encoder is what Conn needs from a packet; *packet.Tagged implements it.
type Encoder interface {
	IDLen() int
	SerializedLength() int
	Required() int
	Serialize(dst []byte) int
}

// Conn encodes packets into a reused scratch buffer and hands them to a
// Sender, retrying failed sends with backoff.
type Conn struct {
	mu      sync.Mutex
	sender  Sender
	cfg     Config
	scratch []byte
	rng     *rand.Rand
	wait    func(ctx context.Context, d time.Duration) error
}

func NewConn(sender Sender, cfg Config) *Conn {
	if cfg.SendAttempts < 1 {
		cfg.SendAttempts = 1
	}
	return &Conn{
		sender: sender,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		wait:   sleepContext,
	}
}

func (c *Conn) Config() Config { return c.cfg }

// SendPacket encodes p and sends it. The sender sees exactly the encoded
// bytes, valid only for the duration of the call.
func (c *Conn) SendPacket(ctx context.Context, p Encoder) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := p.IDLen() + p.SerializedLength()
	if c.cfg.MaxPacket > 0 && size > c.cfg.MaxPacket {
		err := fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, size, c.cfg.MaxPacket)
		c.record(size, 0, observability.OutcomeTooLarge, err)
		return err
	}
	need := p.Required()
	if cap(c.scratch) < need {
		c.scratch = make([]byte, need)
	}
	buf := c.scratch[:need]
	n := p.Serialize(buf)
	if n == 0 && need > 0 {
		err := fmt.Errorf("%w: need=%d", ErrShortBuffer, need)
		c.record(size, 0, observability.OutcomeError, err)
		return err
	}

	var err error
	attempt := 1
	for ; ; attempt++ {
		err = c.sender.Send(buf[:n])
		if err == nil {
			c.record(n, attempt, observability.OutcomeOK, nil)
			return nil
		}
		if errors.Is(err, ErrClosed) || errors.Is(err, ErrStreamBroken) || attempt >= c.cfg.SendAttempts {
			break
		}
		delay := c.cfg.Backoff.Delay(attempt, c.rng)
		log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("transport.send retry")
		if werr := c.wait(ctx, delay); werr != nil {
			err = werr
			break
		}
	}
	err = fmt.Errorf("transport: send failed after %d attempt(s): %w", attempt, err)
	c.record(n, attempt, observability.OutcomeError, err)
	return err
}

func (c *Conn) record(size, attempts int, outcome string, err error) {
	observability.RecordSend(outcome, size, attempts)
	observability.LogSend(log.Logger, size, attempts, outcome, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
