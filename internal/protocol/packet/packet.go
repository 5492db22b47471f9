// Package packet owns the ordered field container and its wire codec.
//
// Wire layout: [optional ID bytes][field 1]...[field N], with no framing,
// checksum or length prefix. Field order is fixed when the packet is built.
package packet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/compacket/internal/protocol/field"
	"github.com/rs/zerolog/log"
)

var ErrUnbounded = errors.New("packet: schema has no maximum size")

// Packet is an ordered, fixed-arity list of fields. It owns its fields;
// callers mutate them through the typed values they passed to New.
type Packet struct {
	fields  []field.Field
	bounded bool
	maxSize int
}

// New builds a packet over fields in wire order. Passing the same field
// value twice is a schema bug and panics.
func New(fields ...field.Field) *Packet {
	seen := make(map[field.Field]struct{}, len(fields))
	p := &Packet{fields: make([]field.Field, len(fields)), bounded: true}
	for i, f := range fields {
		if f == nil {
			panic(fmt.Sprintf("packet: field %d is nil", i))
		}
		if _, dup := seen[f]; dup {
			panic(fmt.Sprintf("packet: field %d (%s) shared within packet", i, f.Schema()))
		}
		seen[f] = struct{}{}
		p.fields[i] = f
		if n, ok := f.MaxSize(); ok && p.bounded {
			p.maxSize += n
		} else {
			p.bounded, p.maxSize = false, 0
		}
	}
	return p
}

// NewBounded is New for schemas that must report a maximum size.
func NewBounded(fields ...field.Field) (*Packet, error) {
	p := New(fields...)
	if !p.bounded {
		return nil, fmt.Errorf("%w: %s", ErrUnbounded, p.Schema())
	}
	return p, nil
}

func (p *Packet) NumFields() int { return len(p.fields) }

func (p *Packet) Field(i int) field.Field { return p.fields[i] }

// Fields returns the fields in wire order. The slice is a copy; the fields
// are not.
func (p *Packet) Fields() []field.Field {
	out := make([]field.Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Bounded reports whether every field has a static maximum size.
func (p *Packet) Bounded() bool { return p.bounded }

// Schema lists the field schemas in wire order.
func (p *Packet) Schema() string {
	parts := make([]string, len(p.fields))
	for i, f := range p.fields {
		parts[i] = f.Schema()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// SerializedLength is the encoded size of the current field values.
func (p *Packet) SerializedLength() int {
	total := 0
	for _, f := range p.fields {
		total += f.Size()
	}
	return total
}

// MaxSize is the largest possible encoding. It panics for unbounded schemas;
// check Bounded or build with NewBounded.
func (p *Packet) MaxSize() int {
	if !p.bounded {
		panic("packet: MaxSize on unbounded schema " + p.Schema())
	}
	return p.maxSize
}

// required is the destination size Serialize insists on.
func (p *Packet) required(idLen int) int {
	if p.bounded {
		return idLen + p.maxSize
	}
	return idLen + p.SerializedLength()
}

// Serialize writes id then every field into dst and returns the number of
// bytes written. Bounded packets need room for MaxSize, unbounded ones for
// SerializedLength; when dst is smaller nothing is written and 0 returned.
func (p *Packet) Serialize(dst []byte, id []byte) int {
	need := p.required(len(id))
	if len(dst) < need {
		log.Debug().
			Int("have", len(dst)).
			Int("need", need).
			Str("schema", p.Schema()).
			Msg("packet.Serialize short buffer")
		return 0
	}
	return p.encode(dst, id)
}

// Append grows dst by exactly len(id)+SerializedLength bytes and encodes the
// packet into the new tail.
func (p *Packet) Append(dst []byte, id []byte) []byte {
	start := len(dst)
	dst = append(dst, make([]byte, len(id)+p.SerializedLength())...)
	p.encode(dst[start:], id)
	return dst
}

// Marshal returns a new buffer holding the encoded packet.
func (p *Packet) Marshal(id []byte) []byte {
	return p.Append(nil, id)
}

func (p *Packet) encode(dst []byte, id []byte) int {
	off := copy(dst, id)
	for _, f := range p.fields {
		off = f.Serialize(dst, off)
	}
	return off
}

// Unserialize decodes src into p. Fields are decoded into a fresh set in
// wire order and committed only when every field decoded fully; otherwise p
// is left untouched. Decoding continues past an invalid field so consumed
// reports how far the input was read.
func (p *Packet) Unserialize(src []byte) (consumed int, valid bool) {
	fresh := make([]field.Field, len(p.fields))
	valid = true
	for i, f := range p.fields {
		fresh[i] = f.New()
		consumed += fresh[i].Deserialize(src[consumed:], &valid)
	}
	if !valid {
		log.Debug().
			Int("len", len(src)).
			Int("consumed", consumed).
			Str("schema", p.Schema()).
			Msg("packet.Unserialize invalid input")
		return consumed, false
	}
	for i, f := range p.fields {
		f.Assign(fresh[i])
	}
	return consumed, true
}

// Unserialize decodes src into target; see Packet.Unserialize.
func Unserialize(src []byte, target *Packet) (int, bool) {
	return target.Unserialize(src)
}

// Equal reports whether other has the same schema and encodes to the same
// bytes.
func (p *Packet) Equal(other *Packet) bool {
	if p.Schema() != other.Schema() {
		return false
	}
	return bytes.Equal(p.Marshal(nil), other.Marshal(nil))
}

// String renders field values in wire order.
func (p *Packet) String() string {
	parts := make([]string, len(p.fields))
	for i, f := range p.fields {
		parts[i] = f.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}
