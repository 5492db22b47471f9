package field

import (
	"fmt"
	"strconv"
	"strings"
)

// Array is a fixed-count sequence of one element schema, encoded as the
// concatenation of its elements in index order.
type Array[F Field] struct {
	proto F
	elems []F
}

// NewArray returns count zero elements shaped like proto. proto itself is
// only used as a template.
func NewArray[F Field](count int, proto F) *Array[F] {
	if count < 0 {
		panic(fmt.Sprintf("field: negative array count %d", count))
	}
	a := &Array[F]{proto: proto.New().(F), elems: make([]F, count)}
	for i := range a.elems {
		a.elems[i] = proto.New().(F)
	}
	return a
}

func (a *Array[F]) Kind() Kind { return KindArray }

func (a *Array[F]) Schema() string {
	return fmt.Sprintf("array(%d,%s)", len(a.elems), a.proto.Schema())
}

func (a *Array[F]) Len() int { return len(a.elems) }

func (a *Array[F]) At(i int) F { return a.elems[i] }

// Fill calls fn for every element in index order.
func (a *Array[F]) Fill(fn func(i int, e F)) {
	for i, e := range a.elems {
		fn(i, e)
	}
}

func (a *Array[F]) Size() int {
	total := 0
	for _, e := range a.elems {
		total += e.Size()
	}
	return total
}

func (a *Array[F]) MaxSize() (int, bool) {
	per, ok := a.proto.MaxSize()
	if !ok {
		return 0, false
	}
	return per * len(a.elems), true
}

func (a *Array[F]) Serialize(dst []byte, off int) int {
	for _, e := range a.elems {
		off = e.Serialize(dst, off)
	}
	return off
}

// Deserialize refuses to start when src is shorter than the array's current
// size; it then clears *valid and reports all of src as consumed.
func (a *Array[F]) Deserialize(src []byte, valid *bool) int {
	if a.Size() > len(src) {
		*valid = false
		return len(src)
	}
	read := 0
	for _, e := range a.elems {
		read += e.Deserialize(src[read:], valid)
	}
	return read
}

func (a *Array[F]) New() Field {
	return NewArray(len(a.elems), a.proto)
}

func (a *Array[F]) Assign(src Field) {
	s, ok := src.(*Array[F])
	if !ok || len(s.elems) != len(a.elems) {
		assignMismatch(a, src)
	}
	for i, e := range a.elems {
		e.Assign(s.elems[i])
	}
}

func (a *Array[F]) String() string {
	parts := make([]string, len(a.elems))
	for i, e := range a.elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Parse sets elements from a comma-separated list. An element may be a
// Go-quoted string to carry commas or edge spaces; unquoted elements are
// trimmed. Missing trailing elements keep their value.
func (a *Array[F]) Parse(raw string) error {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "["), "]"))
	if raw == "" {
		return nil
	}
	parts, err := splitList(raw)
	if err != nil {
		return err
	}
	if len(parts) > len(a.elems) {
		return fmt.Errorf("%w: %d > %d", ErrTooMany, len(parts), len(a.elems))
	}
	next := a.New().(*Array[F])
	next.Assign(a)
	for i, part := range parts {
		if err := Parse(next.elems[i], part); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	a.Assign(next)
	return nil
}

func splitList(raw string) ([]string, error) {
	var parts []string
	for {
		rest := strings.TrimLeft(raw, " \t")
		if strings.HasPrefix(rest, `"`) {
			q, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrParse, rest)
			}
			s, _ := strconv.Unquote(q)
			parts = append(parts, s)
			rest = strings.TrimLeft(rest[len(q):], " \t")
			if rest == "" {
				return parts, nil
			}
			if rest[0] != ',' {
				return nil, fmt.Errorf("%w: text after quoted element: %s", ErrParse, rest)
			}
			raw = rest[1:]
			continue
		}
		part, tail, more := strings.Cut(rest, ",")
		parts = append(parts, strings.TrimSpace(part))
		if !more {
			return parts, nil
		}
		raw = tail
	}
}

func (a *Array[F]) sealed() {}
