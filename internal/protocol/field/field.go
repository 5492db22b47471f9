// Package field owns the per-kind codec for packet fields.
//
// The set of kinds is closed: fixed-width numbers, text, fixed arrays and
// bit-packed blocks. Every kind sizes, serializes and deserializes itself;
// a packet is an ordered list of these values.
package field

import (
	"errors"
	"fmt"
)

var (
	ErrParse     = errors.New("field: cannot parse value")
	ErrTooMany   = errors.New("field: too many array elements")
	ErrNoParser  = errors.New("field: kind does not accept text input")
	ErrCapacity  = errors.New("field: text exceeds capacity")
	ErrEmbedNull = errors.New("field: text contains a NUL byte")
)

// Kind identifies one of the closed set of field kinds.
type Kind uint8

const (
	KindNumber Kind = iota + 1
	KindText
	KindArray
	KindBits
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindArray:
		return "array"
	case KindBits:
		return "bits"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field is one typed slot of a packet layout.
//
// Serialize writes min(Size(), len(dst)-off) bytes at off and returns the new
// offset; callers size dst beforehand. Deserialize treats len(src) as the
// available input, clears *valid when a fixed-size value cannot be filled and
// returns the number of bytes consumed.
type Field interface {
	Kind() Kind
	// Schema describes the kind and its static parameters, e.g. "text(10)".
	Schema() string
	Size() int
	// MaxSize reports the largest possible encoding; false when unbounded.
	MaxSize() (int, bool)
	Serialize(dst []byte, off int) int
	Deserialize(src []byte, valid *bool) int
	// New returns a zero value with the same schema.
	New() Field
	// Assign copies the value of a field with the same schema.
	Assign(src Field)
	String() string

	sealed()
}

// Parser is implemented by kinds that accept a textual value.
type Parser interface {
	Parse(raw string) error
}

// Parse sets f from raw when the kind supports it.
func Parse(f Field, raw string) error {
	p, ok := f.(Parser)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoParser, f.Schema())
	}
	return p.Parse(raw)
}

// SameSchema reports whether a and b encode identically shaped values.
func SameSchema(a, b Field) bool {
	return a.Schema() == b.Schema()
}

func checkOffset(dst []byte, off int) {
	if off < 0 || off > len(dst) {
		panic(fmt.Sprintf("field: serialize offset %d outside buffer of %d", off, len(dst)))
	}
}

func assignMismatch(dst, src Field) {
	panic(fmt.Sprintf("field: cannot assign %s from %s", dst.Schema(), src.Schema()))
}
