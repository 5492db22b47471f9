// Package bitfield owns the byte-backed store used for bit-packed packet fields.
//
// Sub-fields are (offset, length) pairs chosen by the schema author and never
// stored in the block. A sub-field must live inside a single backing byte.
package bitfield

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrSpanLength    = errors.New("bitfield: sub-field length must be 1..8 bits")
	ErrSpanCrossByte = errors.New("bitfield: sub-field crosses a byte boundary")
	ErrSpanRange     = errors.New("bitfield: sub-field outside block")
)

// Value is the set of types a sub-field can be read as or written from.
type Value interface {
	uint8 | int8 | bool
}

// Block is a fixed-size store of ByteLen(bits) bytes, zeroed at creation.
type Block struct {
	bits int
	data []byte
}

// ByteLen returns the number of backing bytes for a block of the given width.
func ByteLen(bits int) int {
	return (bits + 7) / 8
}

// New returns a zeroed block able to hold bits bits.
func New(bits int) *Block {
	if bits < 0 {
		panic(fmt.Sprintf("bitfield: negative width %d", bits))
	}
	return &Block{bits: bits, data: make([]byte, ByteLen(bits))}
}

// Bits returns the declared bit width.
func (b *Block) Bits() int { return b.bits }

// Len returns the encoded size in bytes.
func (b *Block) Len() int { return len(b.data) }

// Bytes returns a copy of the backing bytes.
func (b *Block) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Reset zeroes every backing byte.
func (b *Block) Reset() {
	clear(b.data)
}

// CheckSpan reports whether a sub-field fits in this block without crossing
// a backing byte.
func (b *Block) CheckSpan(offset, length int) error {
	return checkSpan(b.bits, offset, length)
}

func checkSpan(bits, offset, length int) error {
	if length < 1 || length > 8 {
		return fmt.Errorf("%w: offset=%d length=%d", ErrSpanLength, offset, length)
	}
	if offset < 0 || offset+length > ByteLen(bits)*8 {
		return fmt.Errorf("%w: offset=%d length=%d bytes=%d", ErrSpanRange, offset, length, ByteLen(bits))
	}
	if offset%8+length > 8 {
		return fmt.Errorf("%w: offset=%d length=%d", ErrSpanCrossByte, offset, length)
	}
	return nil
}

// mask returns the byte index, the in-byte shift and the mask covering
// bits [shift, shift+length).
func (b *Block) mask(offset, length int) (int, uint, uint8) {
	if err := b.CheckSpan(offset, length); err != nil {
		panic(err.Error())
	}
	shift := uint(offset % 8)
	m := uint8((uint(1)<<uint(length))-1) << shift
	return offset / 8, shift, m
}

// Get extracts the sub-field at [offset, offset+length).
func (b *Block) Get(offset, length int) uint8 {
	idx, shift, m := b.mask(offset, length)
	return (b.data[idx] & m) >> shift
}

// Put stores the low length bits of v at [offset, offset+length). Higher
// bits of v are discarded.
func (b *Block) Put(offset, length int, v uint8) {
	idx, shift, m := b.mask(offset, length)
	b.data[idx] &^= m
	b.data[idx] |= (v << shift) & m
}

// Read returns the sub-field as T. A bool is true when any bit is set.
func Read[T Value](b *Block, offset, length int) T {
	raw := b.Get(offset, length)
	var out T
	switch p := any(&out).(type) {
	case *bool:
		*p = raw != 0
	case *uint8:
		*p = raw
	case *int8:
		*p = int8(raw)
	}
	return out
}

// Write stores v into the sub-field. A bool is written as 1 or 0.
func Write[T Value](b *Block, offset, length int, v T) {
	var raw uint8
	switch x := any(v).(type) {
	case bool:
		if x {
			raw = 1
		}
	case uint8:
		raw = x
	case int8:
		raw = uint8(x)
	}
	b.Put(offset, length, raw)
}

// Serialize copies min(Len, len(dst)-off) bytes to dst at off and returns the
// new offset.
func (b *Block) Serialize(dst []byte, off int) int {
	if off < 0 || off > len(dst) {
		panic(fmt.Sprintf("bitfield: serialize offset %d outside buffer of %d", off, len(dst)))
	}
	return off + copy(dst[off:], b.data)
}

// Deserialize copies min(Len, len(src)) bytes into the block and returns the
// count. A short src clears *valid but the partial bytes are still stored.
func (b *Block) Deserialize(src []byte, valid *bool) int {
	if len(src) < len(b.data) {
		*valid = false
	}
	return copy(b.data, src)
}

// CopyFrom replaces the block contents with src's. Both must share a width.
func (b *Block) CopyFrom(src *Block) {
	b.mustMatch(src)
	copy(b.data, src.data)
}

// Equal compares backing bytes. Blocks of different sizes are a schema bug.
func (b *Block) Equal(other *Block) bool {
	b.mustMatch(other)
	return bytes.Equal(b.data, other.data)
}

func (b *Block) mustMatch(other *Block) {
	if len(b.data) != len(other.data) {
		panic(fmt.Sprintf("bitfield: block size mismatch %d != %d", len(b.data), len(other.data)))
	}
}

func (b *Block) String() string {
	return fmt.Sprintf("%x", b.data)
}
