// Package router demultiplexes packets sharing one channel by their ID
// prefix.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danmuck/compacket/internal/observability"
	"github.com/danmuck/compacket/internal/protocol/packet"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoRoute        = errors.New("router: no route for packet id")
	ErrInvalidPayload = errors.New("router: payload failed to decode")
	ErrDuplicateName  = errors.New("router: route name already registered")
	ErrAmbiguousID    = errors.New("router: packet id overlaps a registered id")
	ErrEmptyName      = errors.New("router: route name required")
)

// Result describes one dispatched packet. Consumed includes the ID prefix.
type Result struct {
	Name     string
	Consumed int
	Packet   *packet.Tagged
}

// Handler receives successfully decoded packets.
type Handler interface {
	HandlePacket(Result)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Result)

func (f HandlerFunc) HandlePacket(r Result) { f(r) }

// Receiver yields raw packets from a channel.
type Receiver interface {
	Receive(ctx context.Context) ([]byte, error)
}

type route struct {
	name    string
	pkt     *packet.Tagged
	handler Handler
}

// Router owns the packets registered with it; each dispatch decodes into the
// matching route's packet and calls its handler while holding the router
// lock. Handlers must not call back into the router.
type Router struct {
	mu     sync.Mutex
	routes []route
}

func New() *Router {
	return &Router{}
}

// Handle registers p under name. IDs must not equal or prefix one another
// so that at most one route can match any input.
func (r *Router) Handle(name string, p *packet.Tagged, h Handler) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := p.ID()
	for _, rt := range r.routes {
		if rt.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		other := rt.pkt.ID()
		if bytes.HasPrefix(id, other) || bytes.HasPrefix(other, id) {
			return fmt.Errorf("%w: %s id=%x overlaps %s id=%x", ErrAmbiguousID, name, id, rt.name, other)
		}
	}
	r.routes = append(r.routes, route{name: name, pkt: p, handler: h})
	log.Debug().Str("route", name).Hex("id", id).Str("schema", p.Schema()).Msg("router.Handle")
	return nil
}

// Routes returns the registered route names in registration order.
func (r *Router) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.routes))
	for i, rt := range r.routes {
		out[i] = rt.name
	}
	return out
}

// Dispatch finds the route whose ID prefixes data, decodes the payload into
// its packet and calls its handler. A payload that fails to decode leaves the
// route's packet untouched and returns ErrInvalidPayload with the partial
// Result so callers can resynchronize.
func (r *Router) Dispatch(data []byte) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.routes {
		matched, consumed, valid := rt.pkt.Match(data)
		if !matched {
			continue
		}
		res := Result{Name: rt.name, Consumed: consumed, Packet: rt.pkt}
		if !valid {
			err := fmt.Errorf("%w: route=%s consumed=%d len=%d", ErrInvalidPayload, rt.name, consumed, len(data))
			r.record(rt.name, consumed, observability.OutcomeInvalid, err)
			return res, err
		}
		r.record(rt.name, consumed, observability.OutcomeOK, nil)
		if rt.handler != nil {
			rt.handler.HandlePacket(res)
		}
		return res, nil
	}
	err := fmt.Errorf("%w: len=%d", ErrNoRoute, len(data))
	r.record("", 0, observability.OutcomeNoRoute, err)
	return Result{}, err
}

func (r *Router) record(name string, consumed int, outcome string, err error) {
	observability.RecordDispatch(name, outcome, consumed)
	observability.LogDispatch(log.Logger, name, consumed, outcome, err)
}

// Serve dispatches everything rx yields until ctx is done or rx fails.
// Unroutable or undecodable packets are dropped.
func (r *Router) Serve(ctx context.Context, rx Receiver) error {
	for {
		data, err := rx.Receive(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		_, _ = r.Dispatch(data)
	}
}
