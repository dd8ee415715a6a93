package hassio

import (
	"maps"
	"time"
)

// Snapshot sources counted by the snapshots sensor
const (
	SourceGoogleDrive   = "GoogleDrive"
	SourceHomeAssistant = "HomeAssistant"
)

// StatusHAOnly is reported for a snapshot known only to the Supervisor
const StatusHAOnly = "HA Only"

// SensorSnapshot is what the snapshots sensor needs to know about a snapshot.
// Implementations may be backed by any number of sources.
type SensorSnapshot interface {
	Name() string
	Date() time.Time
	Status() string
	// HasSource reports whether a copy exists in the given source
	HasSource(source string) bool
}

// Snapshot is a read-only view over the raw info the Supervisor returns for
// one snapshot. Retained is taken from settings, not from the info.
type Snapshot struct {
	info     map[string]any
	retained bool
}

// NewSnapshot wraps a copy of raw Supervisor info
func NewSnapshot(info map[string]any, retained bool) *Snapshot {
	copied := maps.Clone(info)
	if copied == nil {
		copied = map[string]any{}
	}
	return &Snapshot{info: copied, retained: retained}
}

// Info returns a copy of the raw info map. Nested values are shared.
func (s *Snapshot) Info() map[string]any { return maps.Clone(s.info) }

func (s *Snapshot) Slug() string { return stringField(s.info, "slug") }
func (s *Snapshot) Name() string { return stringField(s.info, "name") }
func (s *Snapshot) Type() string { return stringField(s.info, "type") }

// Date parses the "date" field; the zero time is returned when it is missing
// or unparseable.
func (s *Snapshot) Date() time.Time {
	raw := stringField(s.info, "date")
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Size returns the size field as reported (megabytes on the Supervisor)
func (s *Snapshot) Size() float64 {
	if v, ok := s.info["size"].(float64); ok {
		return v
	}
	return 0
}

func (s *Snapshot) Protected() bool {
	v, _ := s.info["protected"].(bool)
	return v
}

func (s *Snapshot) Retained() bool { return s.retained }

func (s *Snapshot) Status() string { return StatusHAOnly }

// HasSource is true only for the Home Assistant source
func (s *Snapshot) HasSource(source string) bool {
	return source == SourceHomeAssistant
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
