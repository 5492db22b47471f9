package packet

import (
	"bytes"

	"github.com/danmuck/compacket/internal/protocol/field"
)

// Tagged is a Packet carrying its own fixed-length ID prefix. The ID is not
// a field; it is written before the fields and matched on receipt.
type Tagged struct {
	*Packet
	id []byte
}

// NewTagged builds a tagged packet whose ID length is len(id).
func NewTagged(id []byte, fields ...field.Field) *Tagged {
	return &Tagged{Packet: New(fields...), id: bytes.Clone(id)}
}

// NewTaggedLen builds a tagged packet with a zero-filled ID of n bytes.
func NewTaggedLen(n int, fields ...field.Field) *Tagged {
	return &Tagged{Packet: New(fields...), id: make([]byte, n)}
}

// SetID copies min(len(src), IDLen()) bytes into the ID. Trailing ID bytes
// beyond src keep their previous value.
func (t *Tagged) SetID(src []byte) {
	copy(t.id, src)
}

// ID returns a copy of the ID prefix.
func (t *Tagged) ID() []byte { return bytes.Clone(t.id) }

func (t *Tagged) IDLen() int { return len(t.id) }

// MaxSize includes the ID prefix.
func (t *Tagged) MaxSize() int {
	return t.Packet.MaxSize() + len(t.id)
}

// Required is the smallest destination Serialize accepts.
func (t *Tagged) Required() int {
	return t.required(len(t.id))
}

func (t *Tagged) Serialize(dst []byte) int {
	return t.Packet.Serialize(dst, t.id)
}

func (t *Tagged) Append(dst []byte) []byte {
	return t.Packet.Append(dst, t.id)
}

func (t *Tagged) Marshal() []byte {
	return t.Packet.Marshal(t.id)
}

func (t *Tagged) CheckIDMatch(data []byte) (bool, int, int) {
	return CheckIDMatch(data, t.id)
}

// Match checks the ID prefix of data and, on a match, decodes the payload
// into t. consumed includes the ID bytes.
func (t *Tagged) Match(data []byte) (matched bool, consumed int, valid bool) {
	ok, off, n := t.CheckIDMatch(data)
	if !ok {
		return false, 0, false
	}
	read, valid := t.Unserialize(data[off : off+n])
	return true, off + read, valid
}
