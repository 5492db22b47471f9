// Package config loads packet schemas and link settings from TOML.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/compacket/internal/transport"
)

// File is a decoded and validated schema file.
type File struct {
	Packets   []PacketDef
	Transport transport.Config
}

// PacketDef describes one tagged packet.
type PacketDef struct {
	Name   string     `toml:"name"`
	ID     []int      `toml:"id"`
	Fields []FieldDef `toml:"field"`
}

// FieldDef describes one field. Which keys apply depends on Kind:
// capacity for text (absent means unbounded), bits and sub for bits,
// count and elem for array. Value is an optional initial value.
type FieldDef struct {
	Name     string    `toml:"name"`
	Kind     string    `toml:"kind"`
	Capacity *int      `toml:"capacity"`
	Bits     int       `toml:"bits"`
	Count    int       `toml:"count"`
	Elem     *FieldDef `toml:"elem"`
	Value    any       `toml:"value"`
	Sub      []SubDef  `toml:"sub"`
}

// SubDef names a span of a bits field. A span must stay inside one byte.
type SubDef struct {
	Name   string `toml:"name"`
	Offset int    `toml:"offset"`
	Length int    `toml:"length"`
	Value  *int   `toml:"value"`
}

type fileConfig struct {
	Packets   []PacketDef     `toml:"packet"`
	Transport transportConfig `toml:"transport"`
}

type transportConfig struct {
	MaxPacket    int     `toml:"max_packet"`
	SendAttempts int     `toml:"send_attempts"`
	InitialDelay string  `toml:"initial_delay"`
	Multiplier   float64 `toml:"multiplier"`
	MaxDelay     string  `toml:"max_delay"`
	Jitter       bool    `toml:"jitter"`
}

// LoadFile decodes and validates the schema file at path.
func LoadFile(path string) (File, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return File{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	f, err := finish(meta, raw)
	if err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	return f, nil
}

// Parse is LoadFile for in-memory TOML.
func Parse(data string) (File, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return File{}, fmt.Errorf("config parse failed: %w", err)
	}
	return finish(meta, raw)
}

func finish(meta toml.MetaData, raw fileConfig) (File, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return File{}, fmt.Errorf("%w: %s", ErrUnknownKey, undecoded[0].String())
	}
	cfg, err := loadTransport(meta, raw.Transport)
	if err != nil {
		return File{}, err
	}
	f := File{Packets: raw.Packets, Transport: cfg}
	for i := range f.Packets {
		f.Packets[i].Name = strings.TrimSpace(f.Packets[i].Name)
	}
	if err := Validate(f); err != nil {
		return File{}, err
	}
	return f, nil
}

func loadTransport(meta toml.MetaData, raw transportConfig) (transport.Config, error) {
	cfg := transport.DefaultConfig()

	if meta.IsDefined("transport", "max_packet") {
		cfg.MaxPacket = raw.MaxPacket
	}

	if meta.IsDefined("transport", "send_attempts") {
		cfg.SendAttempts = raw.SendAttempts
	}

	if meta.IsDefined("transport", "initial_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.InitialDelay))
		if err != nil {
			return transport.Config{}, fmt.Errorf("parse transport.initial_delay: %w", err)
		}
		cfg.Backoff.InitialDelay = d
	}

	if meta.IsDefined("transport", "multiplier") {
		cfg.Backoff.Multiplier = raw.Multiplier
	}

	if meta.IsDefined("transport", "max_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.MaxDelay))
		if err != nil {
			return transport.Config{}, fmt.Errorf("parse transport.max_delay: %w", err)
		}
		cfg.Backoff.MaxDelay = d
	}

	if meta.IsDefined("transport", "jitter") {
		cfg.Backoff.Jitter = raw.Jitter
	}

	return cfg, nil
}

// Find returns the packet definition called name.
func (f File) Find(name string) (PacketDef, bool) {
	name = strings.TrimSpace(name)
	for _, def := range f.Packets {
		if def.Name == name {
			return def, true
		}
	}
	return PacketDef{}, false
}

// IDBytes converts the ID to bytes; Validate guarantees the range.
func (d PacketDef) IDBytes() []byte {
	out := make([]byte, len(d.ID))
	for i, v := range d.ID {
		out[i] = byte(v)
	}
	return out
}
