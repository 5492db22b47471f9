package bitfield

import (
	"errors"
	"testing"

	"github.com/danmuck/compacket/internal/testutil/testlog"
)

func TestNewBlockIsZeroed(t *testing.T) {
	testlog.Start(t)
	for bits, want := range map[int]int{0: 0, 1: 1, 8: 1, 9: 2, 70: 9} {
		b := New(bits)
		if b.Len() != want {
			t.Fatalf("bits=%d len got=%d want=%d", bits, b.Len(), want)
		}
		for i, v := range b.Bytes() {
			if v != 0 {
				t.Fatalf("bits=%d byte %d not zero: %d", bits, i, v)
			}
		}
	}
}

func TestWriteMasksToSubFieldWidth(t *testing.T) {
	testlog.Start(t)
	b := New(1)
	Write[uint8](b, 0, 1, 1)
	if got := Read[uint8](b, 0, 1); got != 1 {
		t.Fatalf("write 1 read got=%d", got)
	}
	Write[uint8](b, 0, 1, 5)
	if got := Read[uint8](b, 0, 1); got != 1 {
		t.Fatalf("write 5 read got=%d want=1", got)
	}
	Write[uint8](b, 0, 1, 4)
	if got := Read[uint8](b, 0, 1); got != 0 {
		t.Fatalf("write 4 read got=%d want=0", got)
	}
}

func TestSubFieldsDoNotClobberNeighbours(t *testing.T) {
	testlog.Start(t)
	b := New(70)
	b.Put(0, 5, 0x1f)
	b.Put(13, 3, 0x5)
	b.Put(64, 6, 0x2a)
	if got := b.Get(0, 5); got != 0x1f {
		t.Fatalf("bits 0..5 got=%#x", got)
	}
	if got := b.Get(13, 3); got != 0x5 {
		t.Fatalf("bits 13..16 got=%#x", got)
	}
	if got := b.Get(64, 6); got != 0x2a {
		t.Fatalf("bits 64..70 got=%#x", got)
	}
	raw := b.Bytes()
	if raw[0] != 0x1f || raw[1] != 0xa0 || raw[8] != 0x2a {
		t.Fatalf("unexpected layout: %x", raw)
	}

	b.Put(0, 5, 0)
	if got := b.Get(13, 3); got != 0x5 {
		t.Fatalf("clearing bits 0..5 touched bits 13..16: %#x", got)
	}
}

func TestBoolAndSignedAccessors(t *testing.T) {
	testlog.Start(t)
	b := New(16)
	Write(b, 3, 1, true)
	if !Read[bool](b, 3, 1) {
		t.Fatalf("expected bit 3 set")
	}
	Write(b, 3, 1, false)
	if Read[bool](b, 3, 1) {
		t.Fatalf("expected bit 3 clear")
	}
	Write[int8](b, 8, 8, -2)
	if got := Read[int8](b, 8, 8); got != -2 {
		t.Fatalf("int8 round trip got=%d", got)
	}
}

func TestCrossByteSubFieldPanics(t *testing.T) {
	testlog.Start(t)
	b := New(16)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for cross-byte sub-field")
		}
	}()
	b.Put(6, 4, 1)
}

func TestCheckSpan(t *testing.T) {
	testlog.Start(t)
	b := New(12)
	if err := b.CheckSpan(8, 4); err != nil {
		t.Fatalf("valid span rejected: %v", err)
	}
	if err := b.CheckSpan(7, 2); !errors.Is(err, ErrSpanCrossByte) {
		t.Fatalf("expected ErrSpanCrossByte, got %v", err)
	}
	if err := b.CheckSpan(16, 1); !errors.Is(err, ErrSpanRange) {
		t.Fatalf("expected ErrSpanRange, got %v", err)
	}
	if err := b.CheckSpan(0, 0); !errors.Is(err, ErrSpanLength) {
		t.Fatalf("expected ErrSpanLength, got %v", err)
	}
}

func TestSerializeTruncatesToDestination(t *testing.T) {
	testlog.Start(t)
	b := New(24)
	b.Put(0, 8, 0xaa)
	b.Put(8, 8, 0xbb)
	b.Put(16, 8, 0xcc)

	dst := make([]byte, 4)
	if off := b.Serialize(dst, 2); off != 4 {
		t.Fatalf("offset got=%d want=4", off)
	}
	if dst[2] != 0xaa || dst[3] != 0xbb {
		t.Fatalf("unexpected bytes: %x", dst)
	}
}

func TestDeserializeShortInputStoresPartialBytes(t *testing.T) {
	testlog.Start(t)
	b := New(24)
	valid := true
	if n := b.Deserialize([]byte{0x01, 0x02}, &valid); n != 2 {
		t.Fatalf("consumed got=%d want=2", n)
	}
	if valid {
		t.Fatalf("expected short input to clear valid")
	}
	if got := b.Bytes(); got[0] != 0x01 || got[1] != 0x02 || got[2] != 0 {
		t.Fatalf("unexpected storage: %x", got)
	}

	valid = true
	if n := b.Deserialize([]byte{9, 8, 7, 6}, &valid); n != 3 || !valid {
		t.Fatalf("full input got n=%d valid=%v", n, valid)
	}
}

func TestEqual(t *testing.T) {
	testlog.Start(t)
	a, b := New(10), New(10)
	if !a.Equal(b) {
		t.Fatalf("fresh blocks differ")
	}
	a.Put(9, 1, 1)
	if a.Equal(b) {
		t.Fatalf("expected blocks to differ")
	}
	b.CopyFrom(a)
	if !a.Equal(b) {
		t.Fatalf("copy did not match")
	}
}

func TestEqualSizeMismatchPanics(t *testing.T) {
	testlog.Start(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic comparing blocks of different size")
		}
	}()
	New(8).Equal(New(9))
}
