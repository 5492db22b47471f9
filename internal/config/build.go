package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/compacket/internal/protocol/field"
	"github.com/danmuck/compacket/internal/protocol/packet"
)

// Packet is a tagged packet built from a definition, with its fields
// addressable by name. Bits sub-fields are addressed as "field.sub".
type Packet struct {
	*packet.Tagged
	Name   string
	names  []string
	byName map[string]field.Field
	subs   map[string]subField
	order  map[string][]string
}

type subField struct {
	bits   *field.Bits
	offset int
	length int
}

// Value is one named field value as text.
type Value struct {
	Name   string
	Schema string
	Text   string
}

// Build constructs the packet for def and applies initial values. It does
// not check the ID range; use ValidatePacket for that.
func Build(def PacketDef) (*Packet, error) {
	p := &Packet{
		Name:   def.Name,
		byName: make(map[string]field.Field, len(def.Fields)),
		subs:   make(map[string]subField),
		order:  make(map[string][]string),
	}
	fields := make([]field.Field, 0, len(def.Fields))
	for _, fd := range def.Fields {
		name := strings.TrimSpace(fd.Name)
		if name == "" || strings.Contains(name, ".") {
			return nil, ValidationError{Packet: def.Name, Field: fd.Name, Reason: "field name must be non-empty without dots"}
		}
		if _, dup := p.byName[name]; dup {
			return nil, ValidationError{Packet: def.Name, Field: name, Reason: "duplicate field name"}
		}
		if err := validateField(def.Name, name, fd, true); err != nil {
			return nil, err
		}
		f, err := buildField(fd)
		if err != nil {
			return nil, ValidationError{Packet: def.Name, Field: name, Reason: err.Error(), Err: err}
		}
		if b, ok := f.(*field.Bits); ok {
			for _, sd := range fd.Sub {
				sub := name + "." + strings.TrimSpace(sd.Name)
				p.subs[sub] = subField{bits: b, offset: sd.Offset, length: sd.Length}
				p.order[name] = append(p.order[name], sub)
				if sd.Value != nil {
					b.Put(sd.Offset, sd.Length, uint8(*sd.Value))
				}
			}
		}
		if fd.Value != nil {
			if err := field.Parse(f, rawValue(fd.Value)); err != nil {
				return nil, ValidationError{Packet: def.Name, Field: name, Reason: err.Error(), Err: err}
			}
		}
		p.names = append(p.names, name)
		p.byName[name] = f
		fields = append(fields, f)
	}
	p.Tagged = packet.NewTagged(def.IDBytes(), fields...)
	return p, nil
}

// BuildAll builds every packet in f in file order.
func BuildAll(f File) ([]*Packet, error) {
	out := make([]*Packet, 0, len(f.Packets))
	for _, def := range f.Packets {
		p, err := Build(def)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func buildField(fd FieldDef) (field.Field, error) {
	switch strings.TrimSpace(fd.Kind) {
	case "int8":
		return field.NewNumber[int8](0), nil
	case "uint8":
		return field.NewNumber[uint8](0), nil
	case "int16":
		return field.NewNumber[int16](0), nil
	case "uint16":
		return field.NewNumber[uint16](0), nil
	case "int32":
		return field.NewNumber[int32](0), nil
	case "uint32":
		return field.NewNumber[uint32](0), nil
	case "int64":
		return field.NewNumber[int64](0), nil
	case "uint64":
		return field.NewNumber[uint64](0), nil
	case "float32":
		return field.NewNumber[float32](0), nil
	case "float64":
		return field.NewNumber[float64](0), nil
	case "bool":
		return field.NewNumber[bool](false), nil
	case "text":
		if fd.Capacity == nil {
			return field.NewString(), nil
		}
		if *fd.Capacity < 0 {
			return nil, fmt.Errorf("%w: capacity %d", ErrValueRange, *fd.Capacity)
		}
		return field.NewText(*fd.Capacity), nil
	case "bits":
		if fd.Bits <= 0 {
			return nil, fmt.Errorf("%w: bits %d", ErrValueRange, fd.Bits)
		}
		return field.NewBits(fd.Bits), nil
	case "array":
		if fd.Elem == nil {
			return nil, fmt.Errorf("array requires elem")
		}
		if fd.Count < 0 {
			return nil, fmt.Errorf("%w: count %d", ErrValueRange, fd.Count)
		}
		elem, err := buildField(*fd.Elem)
		if err != nil {
			return nil, err
		}
		return field.NewArray(fd.Count, elem), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, fd.Kind)
}

// rawValue renders a decoded TOML value in the syntax field parsers accept.
func rawValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			if s, ok := e.(string); ok {
				parts[i] = strconv.Quote(s)
				continue
			}
			parts[i] = rawValue(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}

// Lookup returns the field called name.
func (p *Packet) Lookup(name string) (field.Field, bool) {
	f, ok := p.byName[name]
	return f, ok
}

// Set parses raw into the field or sub-field called name. A failed parse
// leaves the value unchanged.
func (p *Packet) Set(name, raw string) error {
	name = strings.TrimSpace(name)
	if sub, ok := p.subs[name]; ok {
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 8)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", field.ErrParse, name, raw, err)
		}
		if v >= 1<<sub.length {
			return fmt.Errorf("%w: %s=%d exceeds %d bits", ErrValueRange, name, v, sub.length)
		}
		sub.bits.Put(sub.offset, sub.length, uint8(v))
		return nil
	}
	f, ok := p.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, p.Name, name)
	}
	if err := field.Parse(f, raw); err != nil {
		return fmt.Errorf("%s.%s: %w", p.Name, name, err)
	}
	return nil
}

// Get returns the value of the field or sub-field called name as text.
func (p *Packet) Get(name string) (string, bool) {
	if sub, ok := p.subs[name]; ok {
		return strconv.Itoa(int(sub.bits.Get(sub.offset, sub.length))), true
	}
	f, ok := p.byName[name]
	if !ok {
		return "", false
	}
	return f.String(), true
}

// Values lists every field in wire order, each bits field followed by its
// sub-fields.
func (p *Packet) Values() []Value {
	out := make([]Value, 0, len(p.names)+len(p.subs))
	for _, name := range p.names {
		f := p.byName[name]
		out = append(out, Value{Name: name, Schema: f.Schema(), Text: f.String()})
		for _, sub := range p.order[name] {
			s := p.subs[sub]
			text, _ := p.Get(sub)
			out = append(out, Value{Name: sub, Schema: fmt.Sprintf("bits[%d:%d]", s.offset, s.length), Text: text})
		}
	}
	return out
}
