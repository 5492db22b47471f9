package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/compacket/internal/protocol/bitfield"
)

var (
	ErrUnknownKind  = errors.New("config: unknown field kind")
	ErrUnknownKey   = errors.New("config: unknown key")
	ErrUnknownField = errors.New("config: unknown field")
	ErrValueRange   = errors.New("config: value out of range")
)

// ValidationError pins a schema problem to a packet and, when known, a
// field. Err carries the underlying sentinel for errors.Is.
type ValidationError struct {
	Packet string
	Field  string
	Reason string
	Err    error
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: packet=%q: %s", e.Packet, e.Reason)
	}
	return fmt.Sprintf("config: packet=%q field=%q: %s", e.Packet, e.Field, e.Reason)
}

func (e ValidationError) Unwrap() error { return e.Err }

// numberKinds maps each number kind to its encoded size.
var numberKinds = map[string]int{
	"int8": 1, "uint8": 1, "int16": 2, "uint16": 2,
	"int32": 4, "uint32": 4, "int64": 8, "uint64": 8,
	"float32": 4, "float64": 8, "bool": 1,
}

// Validate checks every packet definition and the transport settings.
// Packet IDs must not equal or prefix one another so one router can carry
// the whole file.
func Validate(f File) error {
	seen := make(map[string]int, len(f.Packets))
	for i, def := range f.Packets {
		if strings.TrimSpace(def.Name) == "" {
			return ValidationError{Packet: fmt.Sprintf("#%d", i), Reason: "name is required"}
		}
		if _, dup := seen[def.Name]; dup {
			return ValidationError{Packet: def.Name, Reason: "duplicate packet name"}
		}
		seen[def.Name] = i
		if err := ValidatePacket(def); err != nil {
			return err
		}
		for _, other := range f.Packets[:i] {
			a, b := def.IDBytes(), other.IDBytes()
			if bytes.HasPrefix(a, b) || bytes.HasPrefix(b, a) {
				return ValidationError{
					Packet: def.Name,
					Reason: fmt.Sprintf("id %x overlaps packet %q id %x", a, other.Name, b),
				}
			}
		}
	}
	return validateTransport(f)
}

// ValidatePacket checks one definition by building it, so initial values
// are parsed too.
func ValidatePacket(def PacketDef) error {
	for _, v := range def.ID {
		if v < 0 || v > 0xff {
			return ValidationError{Packet: def.Name, Reason: fmt.Sprintf("id byte %d out of range", v), Err: ErrValueRange}
		}
	}
	_, err := Build(def)
	return err
}

// MaxFieldBytes caps the encoded size a schema file may give one field.
// Arrays are also capped at MaxFieldBytes elements so building a packet
// never allocates more than the schema could encode.
const MaxFieldBytes = 1 << 20

func validateField(pkt, name string, fd FieldDef, top bool) error {
	_, err := checkField(pkt, name, fd, top)
	return err
}

// checkField validates fd and returns its largest encoding, counting an
// unbounded text as its terminator alone.
func checkField(pkt, name string, fd FieldDef, top bool) (int, error) {
	fail := func(reason string, err error) (int, error) {
		return 0, ValidationError{Packet: pkt, Field: name, Reason: reason, Err: err}
	}
	kind := strings.TrimSpace(fd.Kind)
	if kind != "bits" && len(fd.Sub) > 0 {
		return fail("only bits fields take sub-fields", nil)
	}
	switch {
	case numberKinds[kind] > 0:
		return numberKinds[kind], nil
	case kind == "text":
		if fd.Capacity == nil {
			return 1, nil
		}
		if c := *fd.Capacity; c < 0 || c >= MaxFieldBytes {
			return fail(fmt.Sprintf("capacity %d outside 0..%d", c, MaxFieldBytes-1), ErrValueRange)
		}
		return *fd.Capacity + 1, nil
	case kind == "bits":
		if fd.Bits <= 0 || fd.Bits > MaxFieldBytes*8 {
			return fail(fmt.Sprintf("bits %d outside 1..%d", fd.Bits, MaxFieldBytes*8), ErrValueRange)
		}
		if !top && len(fd.Sub) > 0 {
			return fail("array elements cannot declare sub-fields", nil)
		}
		block := bitfield.New(fd.Bits)
		subs := make(map[string]struct{}, len(fd.Sub))
		for _, sd := range fd.Sub {
			sub := strings.TrimSpace(sd.Name)
			if sub == "" {
				return fail("sub-field name is required", nil)
			}
			if _, dup := subs[sub]; dup {
				return fail(fmt.Sprintf("duplicate sub-field %q", sub), nil)
			}
			subs[sub] = struct{}{}
			if err := block.CheckSpan(sd.Offset, sd.Length); err != nil {
				return fail(fmt.Sprintf("sub-field %q: %v", sub, err), err)
			}
			if sd.Value != nil && (*sd.Value < 0 || *sd.Value >= 1<<sd.Length) {
				return fail(fmt.Sprintf("sub-field %q value %d exceeds %d bits", sub, *sd.Value, sd.Length), ErrValueRange)
			}
		}
		return block.Len(), nil
	case kind == "array":
		if fd.Count < 0 || fd.Count > MaxFieldBytes {
			return fail(fmt.Sprintf("count %d outside 0..%d", fd.Count, MaxFieldBytes), ErrValueRange)
		}
		if fd.Elem == nil {
			return fail("array requires elem", nil)
		}
		per, err := checkField(pkt, name, *fd.Elem, false)
		if err != nil {
			return 0, err
		}
		if per > 0 && fd.Count > MaxFieldBytes/per {
			return fail(fmt.Sprintf("array of %d x %d bytes exceeds %d", fd.Count, per, MaxFieldBytes), ErrValueRange)
		}
		return fd.Count * per, nil
	default:
		return fail(fmt.Sprintf("unknown kind %q", fd.Kind), ErrUnknownKind)
	}
}

func validateTransport(f File) error {
	cfg := f.Transport
	if cfg.MaxPacket < 0 {
		return fmt.Errorf("config: transport.max_packet must be >= 0")
	}
	if cfg.SendAttempts < 1 {
		return fmt.Errorf("config: transport.send_attempts must be >= 1")
	}
	if cfg.Backoff.InitialDelay < 0 || cfg.Backoff.MaxDelay < 0 {
		return fmt.Errorf("config: transport delays must be >= 0")
	}
	if cfg.Backoff.Multiplier < 1 {
		return fmt.Errorf("config: transport.multiplier must be >= 1")
	}
	for _, def := range f.Packets {
		p, err := Build(def)
		if err != nil {
			return err
		}
		if cfg.MaxPacket > 0 && p.Bounded() && p.MaxSize() > cfg.MaxPacket {
			return ValidationError{
				Packet: def.Name,
				Reason: fmt.Sprintf("max size %d exceeds transport.max_packet %d", p.MaxSize(), cfg.MaxPacket),
				Err:    ErrValueRange,
			}
		}
	}
	return nil
}
