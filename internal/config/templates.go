package config

import (
	"fmt"
	"os"
	"strings"
)

// Template returns a starter schema file.
func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "basic":
		return basicTemplate, nil
	case "mixed":
		return mixedTemplate, nil
	default:
		return "", fmt.Errorf("unknown template kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const basicTemplate = `[[packet]]
name = "status"
id = [1]

[[packet.field]]
name = "code"
kind = "uint8"

[[packet.field]]
name = "message"
kind = "text"
capacity = 16
`

const mixedTemplate = `[transport]
max_packet = 64
send_attempts = 3
initial_delay = "10ms"
multiplier = 2.0
max_delay = "250ms"
jitter = true

[[packet]]
name = "mixed"
id = [2, 3]

[[packet.field]]
name = "value"
kind = "int32"
value = -10

[[packet.field]]
name = "label"
kind = "text"
capacity = 10
value = "HELLO WORL"

[[packet.field]]
name = "flag"
kind = "bits"
bits = 1

[[packet.field.sub]]
name = "on"
offset = 0
length = 1
value = 1

[[packet.field]]
name = "large"
kind = "bits"
bits = 70

[[packet.field.sub]]
name = "low"
offset = 0
length = 5

[[packet.field.sub]]
name = "mid"
offset = 13
length = 3

[[packet.field]]
name = "fill"
kind = "array"
count = 10
elem = { kind = "uint8" }
value = [5, 5, 5, 5, 5, 5, 5, 5, 5, 5]

[[packet]]
name = "ack"
id = [9]

[[packet.field]]
name = "seq"
kind = "uint16"

[[packet.field]]
name = "ok"
kind = "bool"
`
