package es

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Builtin transcoding names. Stable: they are embedded in stored state.
const (
	TranscodingUUIDHex = "uuid_hex"
	TranscodingTimeISO = "time_iso"
)

// builtinTranscodings covers the value types every event carries through
// [EventMeta]: uuid identifiers and timestamps.
func builtinTranscodings() []Transcoding {
	return []Transcoding{
		NewTranscoding(TranscodingUUIDHex,
			func(id uuid.UUID) (any, error) {
				return fmt.Sprintf("%x", id[:]), nil
			},
			func(d any) (uuid.UUID, error) {
				s, ok := d.(string)
				if !ok {
					return uuid.Nil, fmt.Errorf("want hex string, got %T", d)
				}
				return uuid.Parse(s)
			},
		),
		NewTranscoding(TranscodingTimeISO,
			func(ts time.Time) (any, error) {
				return ts.Format(time.RFC3339Nano), nil
			},
			func(d any) (time.Time, error) {
				s, ok := d.(string)
				if !ok {
					return time.Time{}, fmt.Errorf("want RFC 3339 string, got %T", d)
				}
				return time.Parse(time.RFC3339Nano, s)
			},
		),
	}
}
