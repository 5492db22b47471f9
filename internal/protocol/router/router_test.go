package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/compacket/internal/protocol/field"
	"github.com/danmuck/compacket/internal/protocol/packet"
	"github.com/danmuck/compacket/internal/testutil/testlog"
	"github.com/danmuck/compacket/internal/transport"
	"github.com/google/go-cmp/cmp"
)

type status struct {
	*packet.Tagged
	code *field.Number[uint8]
	temp *field.Number[int16]
}

func newStatus() *status {
	s := &status{code: field.NewNumber[uint8](0), temp: field.NewNumber[int16](0)}
	s.Tagged = packet.NewTagged([]byte{0x01, 0x10}, s.code, s.temp)
	return s
}

type note struct {
	*packet.Tagged
	text *field.Text
}

func newNote() *note {
	n := &note{text: field.NewText(8)}
	n.Tagged = packet.NewTagged([]byte{0x02}, n.text)
	return n
}

func TestDispatchRoutesByID(t *testing.T) {
	testlog.Start(t)
	r := New()
	st, nt := newStatus(), newNote()
	var seen []string
	h := HandlerFunc(func(res Result) { seen = append(seen, res.Name) })
	if err := r.Handle("status", st.Tagged, h); err != nil {
		t.Fatalf("handle status: %v", err)
	}
	if err := r.Handle("note", nt.Tagged, h); err != nil {
		t.Fatalf("handle note: %v", err)
	}

	src := newStatus()
	src.code.V, src.temp.V = 3, -40
	res, err := r.Dispatch(src.Marshal())
	if err != nil {
		t.Fatalf("dispatch status: %v", err)
	}
	if res.Name != "status" || res.Consumed != 5 || res.Packet != st.Tagged {
		t.Fatalf("unexpected result: %+v", res)
	}
	if st.code.V != 3 || st.temp.V != -40 {
		t.Fatalf("status decode got=%d/%d", st.code.V, st.temp.V)
	}

	msg := newNote()
	msg.text.Set("ok")
	res, err = r.Dispatch(append(msg.Marshal(), 0xee))
	if err != nil {
		t.Fatalf("dispatch note: %v", err)
	}
	if res.Consumed != 4 || nt.text.String() != "ok" {
		t.Fatalf("note got consumed=%d text=%q", res.Consumed, nt.text.String())
	}
	if diff := cmp.Diff([]string{"status", "note"}, seen); diff != "" {
		t.Fatalf("handler calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchNoRoute(t *testing.T) {
	testlog.Start(t)
	r := New()
	if err := r.Handle("status", newStatus().Tagged, nil); err != nil {
		t.Fatalf("handle: %v", err)
	}
	for _, data := range [][]byte{{0x01, 0x11, 0, 0, 0}, {0x01}, nil} {
		if _, err := r.Dispatch(data); !errors.Is(err, ErrNoRoute) {
			t.Fatalf("data=%x expected ErrNoRoute, got %v", data, err)
		}
	}
}

func TestDispatchInvalidPayloadLeavesPacket(t *testing.T) {
	testlog.Start(t)
	r := New()
	st := newStatus()
	st.code.V, st.temp.V = 9, 9
	called := false
	if err := r.Handle("status", st.Tagged, HandlerFunc(func(Result) { called = true })); err != nil {
		t.Fatalf("handle: %v", err)
	}
	res, err := r.Dispatch([]byte{0x01, 0x10, 0x05, 0x06})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if res.Name != "status" || res.Consumed != 4 {
		t.Fatalf("partial result got=%+v", res)
	}
	if called {
		t.Fatalf("handler called for invalid payload")
	}
	if st.code.V != 9 || st.temp.V != 9 {
		t.Fatalf("invalid payload changed packet: %d/%d", st.code.V, st.temp.V)
	}
}

func TestHandleRejectsConflicts(t *testing.T) {
	testlog.Start(t)
	r := New()
	if err := r.Handle("status", newStatus().Tagged, nil); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := r.Handle(" status ", newNote().Tagged, nil); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if err := r.Handle("  ", newNote().Tagged, nil); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	prefix := packet.NewTagged([]byte{0x01}, field.NewNumber[uint8](0))
	if err := r.Handle("prefix", prefix, nil); !errors.Is(err, ErrAmbiguousID) {
		t.Fatalf("expected ErrAmbiguousID for prefix id, got %v", err)
	}
	longer := packet.NewTagged([]byte{0x01, 0x10, 0x00}, field.NewNumber[uint8](0))
	if err := r.Handle("longer", longer, nil); !errors.Is(err, ErrAmbiguousID) {
		t.Fatalf("expected ErrAmbiguousID for extended id, got %v", err)
	}
	if diff := cmp.Diff([]string{"status"}, r.Routes()); diff != "" {
		t.Fatalf("routes mismatch (-want +got):\n%s", diff)
	}
}

func TestServeDispatchesUntilCanceled(t *testing.T) {
	testlog.Start(t)
	r := New()
	st := newStatus()
	got := make(chan uint8, 4)
	if err := r.Handle("status", st.Tagged, HandlerFunc(func(Result) { got <- st.code.V })); err != nil {
		t.Fatalf("handle: %v", err)
	}

	link := transport.NewLoopback(8)
	conn := transport.NewConn(link, transport.DefaultConfig())
	src := newStatus()
	for _, code := range []uint8{1, 2} {
		src.code.V = code
		if err := conn.SendPacket(context.Background(), src); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if err := link.Send([]byte{0x7f}); err != nil {
		t.Fatalf("send junk: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, link) }()

	for _, want := range []uint8{1, 2} {
		select {
		case code := <-got:
			if code != want {
				t.Fatalf("handled code got=%d want=%d", code, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for code %d", want)
		}
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestServeReturnsReceiverError(t *testing.T) {
	testlog.Start(t)
	link := transport.NewLoopback(1)
	_ = link.Close()
	if err := New().Serve(context.Background(), link); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("expected transport.ErrClosed, got %v", err)
	}
}
