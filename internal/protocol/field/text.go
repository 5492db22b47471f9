package field

import (
	"bytes"
	"fmt"
	"strconv"
)

// Unbounded marks a Text without a fixed capacity.
const Unbounded = -1

// Text is a NUL-terminated string field. A bounded Text never holds more
// than its capacity; content is cut at the first NUL so it always
// round-trips.
type Text struct {
	capacity int
	b        []byte
}

// NewText returns an empty text field holding at most capacity bytes.
func NewText(capacity int) *Text {
	if capacity < 0 {
		panic(fmt.Sprintf("field: negative text capacity %d", capacity))
	}
	return &Text{capacity: capacity, b: make([]byte, 0)}
}

// NewString returns an empty text field without a capacity. Packets holding
// one cannot report a maximum size.
func NewString() *Text {
	return &Text{capacity: Unbounded}
}

func (t *Text) Kind() Kind { return KindText }

func (t *Text) Schema() string {
	if t.capacity == Unbounded {
		return "text"
	}
	return "text(" + strconv.Itoa(t.capacity) + ")"
}

// Cap returns the capacity and whether the field is bounded.
func (t *Text) Cap() (int, bool) {
	return t.capacity, t.capacity != Unbounded
}

func (t *Text) Len() int { return len(t.b) }

// Bytes returns a copy of the content without the terminator.
func (t *Text) Bytes() []byte {
	return bytes.Clone(t.b)
}

func (t *Text) String() string { return string(t.b) }

// Set stores s cut at the first NUL and at capacity, returning the number of
// bytes kept.
func (t *Text) Set(s string) int {
	return t.SetBytes([]byte(s))
}

func (t *Text) SetBytes(b []byte) int {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if t.capacity != Unbounded && len(b) > t.capacity {
		b = b[:t.capacity]
	}
	t.b = append(t.b[:0], b...)
	return len(b)
}

// Parse is the strict form of Set: it rejects input that Set would cut.
func (t *Text) Parse(raw string) error {
	if bytes.IndexByte([]byte(raw), 0) >= 0 {
		return fmt.Errorf("%w: %q", ErrEmbedNull, raw)
	}
	if t.capacity != Unbounded && len(raw) > t.capacity {
		return fmt.Errorf("%w: %d > %d", ErrCapacity, len(raw), t.capacity)
	}
	t.Set(raw)
	return nil
}

func (t *Text) Size() int { return len(t.b) + 1 }

func (t *Text) MaxSize() (int, bool) {
	if t.capacity == Unbounded {
		return 0, false
	}
	return t.capacity + 1, true
}

func (t *Text) Serialize(dst []byte, off int) int {
	checkOffset(dst, off)
	n := copy(dst[off:], t.b)
	off += n
	if n == len(t.b) && off < len(dst) {
		dst[off] = 0
		off++
	}
	return off
}

// Deserialize takes the bytes up to the first NUL in src, consuming the
// terminator too. Without a terminator all of src is taken and *valid is
// left as is.
func (t *Text) Deserialize(src []byte, valid *bool) int {
	content, consumed := src, len(src)
	if i := bytes.IndexByte(src, 0); i >= 0 {
		content, consumed = src[:i], i+1
	}
	t.SetBytes(content)
	return consumed
}

func (t *Text) New() Field {
	if t.capacity == Unbounded {
		return NewString()
	}
	return NewText(t.capacity)
}

func (t *Text) Assign(src Field) {
	s, ok := src.(*Text)
	if !ok || s.capacity != t.capacity {
		assignMismatch(t, src)
	}
	t.b = append(t.b[:0], s.b...)
}

func (t *Text) sealed() {}
