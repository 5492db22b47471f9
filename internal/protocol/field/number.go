package field

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Numeric lists the fixed-width types a Number can hold.
type Numeric interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64 | bool
}

// Number is a fixed-width numeric field encoded in host byte order.
type Number[T Numeric] struct {
	V T
}

func NewNumber[T Numeric](v T) *Number[T] {
	return &Number[T]{V: v}
}

func (n *Number[T]) Kind() Kind { return KindNumber }

func (n *Number[T]) Schema() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

func (n *Number[T]) Size() int {
	var zero T
	return binary.Size(zero)
}

func (n *Number[T]) MaxSize() (int, bool) { return n.Size(), true }

func (n *Number[T]) Serialize(dst []byte, off int) int {
	checkOffset(dst, off)
	var raw [8]byte
	w := putNative(raw[:], n.V)
	return off + copy(dst[off:], raw[:w])
}

func (n *Number[T]) Deserialize(src []byte, valid *bool) int {
	w := n.Size()
	if len(src) < w {
		*valid = false
		return len(src)
	}
	n.V = getNative[T](src[:w])
	return w
}

func (n *Number[T]) New() Field { return &Number[T]{} }

func (n *Number[T]) Assign(src Field) {
	s, ok := src.(*Number[T])
	if !ok {
		assignMismatch(n, src)
	}
	n.V = s.V
}

func (n *Number[T]) String() string {
	return fmt.Sprint(n.V)
}

// Parse accepts Go literal syntax for integers (0x, 0b, 0o prefixes),
// floats and strconv booleans.
func (n *Number[T]) Parse(raw string) error {
	raw = strings.TrimSpace(raw)
	var (
		out T
		err error
	)
	switch p := any(&out).(type) {
	case *bool:
		*p, err = strconv.ParseBool(raw)
	case *int8:
		var v int64
		v, err = strconv.ParseInt(raw, 0, 8)
		*p = int8(v)
	case *int16:
		var v int64
		v, err = strconv.ParseInt(raw, 0, 16)
		*p = int16(v)
	case *int32:
		var v int64
		v, err = strconv.ParseInt(raw, 0, 32)
		*p = int32(v)
	case *int64:
		*p, err = strconv.ParseInt(raw, 0, 64)
	case *uint8:
		var v uint64
		v, err = strconv.ParseUint(raw, 0, 8)
		*p = uint8(v)
	case *uint16:
		var v uint64
		v, err = strconv.ParseUint(raw, 0, 16)
		*p = uint16(v)
	case *uint32:
		var v uint64
		v, err = strconv.ParseUint(raw, 0, 32)
		*p = uint32(v)
	case *uint64:
		*p, err = strconv.ParseUint(raw, 0, 64)
	case *float32:
		var v float64
		v, err = strconv.ParseFloat(raw, 32)
		*p = float32(v)
	case *float64:
		*p, err = strconv.ParseFloat(raw, 64)
	}
	if err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrParse, n.Schema(), raw, err)
	}
	n.V = out
	return nil
}

func (n *Number[T]) sealed() {}

func putNative[T Numeric](b []byte, v T) int {
	switch x := any(v).(type) {
	case bool:
		b[0] = 0
		if x {
			b[0] = 1
		}
		return 1
	case int8:
		b[0] = byte(x)
		return 1
	case uint8:
		b[0] = x
		return 1
	case int16:
		binary.NativeEndian.PutUint16(b, uint16(x))
		return 2
	case uint16:
		binary.NativeEndian.PutUint16(b, x)
		return 2
	case int32:
		binary.NativeEndian.PutUint32(b, uint32(x))
		return 4
	case uint32:
		binary.NativeEndian.PutUint32(b, x)
		return 4
	case float32:
		binary.NativeEndian.PutUint32(b, math.Float32bits(x))
		return 4
	case int64:
		binary.NativeEndian.PutUint64(b, uint64(x))
		return 8
	case uint64:
		binary.NativeEndian.PutUint64(b, x)
		return 8
	case float64:
		binary.NativeEndian.PutUint64(b, math.Float64bits(x))
		return 8
	}
	return 0
}

func getNative[T Numeric](b []byte) T {
	var out T
	switch p := any(&out).(type) {
	case *bool:
		*p = b[0] != 0
	case *int8:
		*p = int8(b[0])
	case *uint8:
		*p = b[0]
	case *int16:
		*p = int16(binary.NativeEndian.Uint16(b))
	case *uint16:
		*p = binary.NativeEndian.Uint16(b)
	case *int32:
		*p = int32(binary.NativeEndian.Uint32(b))
	case *uint32:
		*p = binary.NativeEndian.Uint32(b)
	case *float32:
		*p = math.Float32frombits(binary.NativeEndian.Uint32(b))
	case *int64:
		*p = int64(binary.NativeEndian.Uint64(b))
	case *uint64:
		*p = binary.NativeEndian.Uint64(b)
	case *float64:
		*p = math.Float64frombits(binary.NativeEndian.Uint64(b))
	}
	return out
}
