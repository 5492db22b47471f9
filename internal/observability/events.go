package observability

import (
	"github.com/rs/zerolog"
)

// LogDispatch writes one line per dispatched packet. Misses and decode
// failures are input problems, not faults, so they stay below warn.
func LogDispatch(logger zerolog.Logger, route string, consumed int, outcome string, err error) {
	event := logger.Trace()
	switch outcome {
	case OutcomeInvalid:
		event = logger.Debug()
	case OutcomeNoRoute:
		event = logger.Debug()
	case OutcomeError:
		event = logger.Warn()
	}
	event.
		Str("route", route).
		Int("consumed", consumed).
		Str("outcome", outcome).
		Err(err).
		Msg("router.dispatch")
}

// LogSend writes one line per packet send.
func LogSend(logger zerolog.Logger, size, attempts int, outcome string, err error) {
	event := logger.Trace()
	if outcome != OutcomeOK {
		event = logger.Warn()
	}
	event.
		Int("bytes", size).
		Int("attempts", attempts).
		Str("outcome", outcome).
		Err(err).
		Msg("transport.send")
}
