package field

import (
	"strconv"

	"github.com/danmuck/compacket/internal/protocol/bitfield"
)

// Bits is a bit-packed field backed by a bitfield.Block. Sub-field accessors
// live with the schema author, typically as methods on a named wrapper.
type Bits struct {
	*bitfield.Block
}

func NewBits(bits int) *Bits {
	return &Bits{Block: bitfield.New(bits)}
}

func (b *Bits) Kind() Kind { return KindBits }

func (b *Bits) Schema() string {
	return "bits(" + strconv.Itoa(b.Bits()) + ")"
}

func (b *Bits) Size() int { return b.Len() }

func (b *Bits) MaxSize() (int, bool) { return b.Len(), true }

func (b *Bits) New() Field { return NewBits(b.Bits()) }

func (b *Bits) Assign(src Field) {
	s, ok := src.(*Bits)
	if !ok || s.Bits() != b.Bits() {
		assignMismatch(b, src)
	}
	b.CopyFrom(s.Block)
}

func (b *Bits) sealed() {}
