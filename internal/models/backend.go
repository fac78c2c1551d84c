package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// BackendKind identifies one of the two data backends. The string values are
// the ones persisted as the saved preference, so they must stay stable.
type BackendKind string

const (
	// BackendFirestore is the primary document store. Always safe to target.
	BackendFirestore BackendKind = "firestore"
	// BackendMongo is the legacy REST-backed store. May be unreachable.
	BackendMongo BackendKind = "mongodb"
)

// Valid reports whether the kind names a known backend.
func (k BackendKind) Valid() bool {
	return k == BackendFirestore || k == BackendMongo
}

// BackendStatus describes the selector state for the status endpoint.
type BackendStatus struct {
	Active     BackendKind  `json:"active"`
	Probe      *ProbeResult `json:"probe,omitempty"`
	ObservedAt time.Time    `json:"observed_at"`
}

// ProbeResult captures the outcome of an availability probe against the
// legacy REST backend.
type ProbeResult struct {
	Reachable  bool          `json:"reachable"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// FlexTime is a timestamp that tolerates the representations the two backends
// emit: an RFC3339 string, epoch milliseconds, or a {seconds, nanoseconds}
// wrapper. All variants normalise to a UTC time.Time.
type FlexTime struct {
	time.Time
}

type secondsWrapper struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int64 `json:"nanoseconds"`
}

// UnmarshalJSON accepts the supported timestamp encodings.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", raw, err)
		}
		t.Time = parsed.UTC()
		return nil
	}

	var millis int64
	if err := json.Unmarshal(data, &millis); err == nil {
		t.Time = time.UnixMilli(millis).UTC()
		return nil
	}

	var wrapped secondsWrapper
	if err := json.Unmarshal(data, &wrapped); err == nil {
		t.Time = time.Unix(wrapped.Seconds, wrapped.Nanoseconds).UTC()
		return nil
	}

	return fmt.Errorf("unsupported timestamp encoding: %s", string(data))
}

// MarshalJSON emits RFC3339, the encoding the legacy API produces.
func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}
