package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/compacket/internal/protocol/bitfield"
	"github.com/danmuck/compacket/internal/protocol/field"
	"github.com/danmuck/compacket/internal/testutil/testlog"
	"github.com/danmuck/compacket/internal/transport"
	"github.com/google/go-cmp/cmp"
)

func TestTemplatesLoad(t *testing.T) {
	testlog.Start(t)
	for _, kind := range []string{"basic", "mixed"} {
		path := filepath.Join(t.TempDir(), kind+".toml")
		if err := WriteTemplate(path, kind, false); err != nil {
			t.Fatalf("write %s template: %v", kind, err)
		}
		if err := WriteTemplate(path, kind, false); err == nil {
			t.Fatalf("expected refusal to overwrite %s", path)
		}
		if _, err := LoadFile(path); err != nil {
			t.Fatalf("load %s template: %v", kind, err)
		}
	}
	if _, err := Template("nope"); err == nil {
		t.Fatalf("expected unknown template error")
	}
}

func TestLoadMixedSchema(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "mixed.toml")
	if err := WriteTemplate(path, "mixed", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(f.Packets) != 2 {
		t.Fatalf("packet count got=%d", len(f.Packets))
	}
	if f.Transport.MaxPacket != 64 || f.Transport.SendAttempts != 3 {
		t.Fatalf("unexpected transport: %+v", f.Transport)
	}
	if f.Transport.Backoff.InitialDelay != 10*time.Millisecond || f.Transport.Backoff.MaxDelay != 250*time.Millisecond {
		t.Fatalf("unexpected backoff: %+v", f.Transport.Backoff)
	}

	def, ok := f.Find("mixed")
	if !ok {
		t.Fatalf("mixed packet missing")
	}
	p, err := Build(def)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if p.MaxSize() != 37 {
		t.Fatalf("max size got=%d want=37", p.MaxSize())
	}
	want := []Value{
		{Name: "value", Schema: "int32", Text: "-10"},
		{Name: "label", Schema: "text(10)", Text: "HELLO WORL"},
		{Name: "flag", Schema: "bits(1)", Text: "01"},
		{Name: "flag.on", Schema: "bits[0:1]", Text: "1"},
		{Name: "large", Schema: "bits(70)", Text: "000000000000000000"},
		{Name: "large.low", Schema: "bits[0:5]", Text: "0"},
		{Name: "large.mid", Schema: "bits[13:3]", Text: "0"},
		{Name: "fill", Schema: "array(10,uint8)", Text: "[5,5,5,5,5,5,5,5,5,5]"},
	}
	if diff := cmp.Diff(want, p.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestTransportDefaultsWhenAbsent(t *testing.T) {
	testlog.Start(t)
	tmpl, _ := Template("basic")
	f, err := Parse(tmpl)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(transport.DefaultConfig(), f.Transport); diff != "" {
		t.Fatalf("transport defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestPacketSetAndRoundTrip(t *testing.T) {
	testlog.Start(t)
	tmpl, _ := Template("mixed")
	f, err := Parse(tmpl)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	def, _ := f.Find("mixed")
	src, _ := Build(def)
	if err := src.Set("large.mid", "5"); err != nil {
		t.Fatalf("set sub-field: %v", err)
	}
	if err := src.Set("large.mid", "8"); !errors.Is(err, ErrValueRange) {
		t.Fatalf("expected ErrValueRange, got %v", err)
	}
	if err := src.Set("label", "hi"); err != nil {
		t.Fatalf("set label: %v", err)
	}
	if err := src.Set("value", "x"); err == nil {
		t.Fatalf("expected parse error")
	}
	if err := src.Set("missing", "1"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}

	dst, _ := Build(def)
	dst.Set("label", "zzz")
	matched, consumed, valid := dst.Match(src.Marshal())
	if !matched || !valid || consumed != src.IDLen()+src.SerializedLength() {
		t.Fatalf("match got matched=%v valid=%v consumed=%d", matched, valid, consumed)
	}
	if got, _ := dst.Get("large.mid"); got != "5" {
		t.Fatalf("sub-field got=%s", got)
	}
	if got, _ := dst.Get("label"); got != "hi" {
		t.Fatalf("label got=%s", got)
	}
}

func TestArrayValueKeepsCommasInText(t *testing.T) {
	testlog.Start(t)
	f, err := Parse(`
[[packet]]
name = "tags"
id = [7]
[[packet.field]]
name = "tags"
kind = "array"
count = 3
elem = { kind = "text", capacity = 4 }
value = ["x,y", "z"]
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	def, _ := f.Find("tags")
	p, err := Build(def)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	fld, _ := p.Lookup("tags")
	arr := fld.(*field.Array[field.Field])
	got := []string{arr.At(0).String(), arr.At(1).String(), arr.At(2).String()}
	if diff := cmp.Diff([]string{"x,y", "z", ""}, got); diff != "" {
		t.Fatalf("elements mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateRejects(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		toml string
		want error
	}{
		{"unknown kind", `
[[packet]]
name = "a"
id = [1]
[[packet.field]]
name = "x"
kind = "complex64"
`, ErrUnknownKind},
		{"cross byte sub-field", `
[[packet]]
name = "a"
id = [1]
[[packet.field]]
name = "flags"
kind = "bits"
bits = 16
[[packet.field.sub]]
name = "bad"
offset = 6
length = 4
`, bitfield.ErrSpanCrossByte},
		{"id byte range", `
[[packet]]
name = "a"
id = [256]
`, ErrValueRange},
		{"unknown key", `
[[packet]]
name = "a"
id = [1]
colour = "red"
`, ErrUnknownKey},
		{"bad initial value", `
[[packet]]
name = "a"
id = [1]
[[packet.field]]
name = "n"
kind = "uint8"
value = 300
`, nil},
		{"huge text capacity", `
[[packet]]
name = "a"
id = [1]
[[packet.field]]
name = "s"
kind = "text"
capacity = 9223372036854775807
`, ErrValueRange},
		{"huge array count", `
[[packet]]
name = "a"
id = [1]
[[packet.field]]
name = "xs"
kind = "array"
count = 9223372036854775807
elem = { kind = "uint8" }
`, ErrValueRange},
		{"array bytes over limit", `
[[packet]]
name = "a"
id = [1]
[[packet.field]]
name = "xs"
kind = "array"
count = 524288
elem = { kind = "text", capacity = 1000 }
`, ErrValueRange},
		{"huge bits", `
[[packet]]
name = "a"
id = [1]
[[packet.field]]
name = "flags"
kind = "bits"
bits = 9223372036854775807
`, ErrValueRange},
	}
	for _, tc := range cases {
		_, err := Parse(tc.toml)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateRejectsOverlappingIDs(t *testing.T) {
	testlog.Start(t)
	_, err := Parse(`
[[packet]]
name = "a"
id = [1, 2]

[[packet]]
name = "b"
id = [1]
`)
	var verr ValidationError
	if !errors.As(err, &verr) || verr.Packet != "b" || !strings.Contains(verr.Reason, "overlaps") {
		t.Fatalf("expected overlap validation error, got %v", err)
	}
}

func TestValidateRejectsPacketOverMaxPacket(t *testing.T) {
	testlog.Start(t)
	_, err := Parse(`
[transport]
max_packet = 4

[[packet]]
name = "big"
id = [1]
[[packet.field]]
name = "n"
kind = "uint64"
`)
	if !errors.Is(err, ErrValueRange) {
		t.Fatalf("expected ErrValueRange, got %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	testlog.Start(t)
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
