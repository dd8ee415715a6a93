package hassio

import (
	"testing"
	"time"
)

func TestSnapshotFields(t *testing.T) {
	s := NewSnapshot(map[string]any{
		"slug":      "abc123",
		"name":      "Nightly",
		"type":      "partial",
		"date":      "2021-01-05T10:20:30.123456+00:00",
		"size":      12.5,
		"protected": true,
	}, true)

	if s.Slug() != "abc123" || s.Name() != "Nightly" || s.Type() != "partial" {
		t.Errorf("unexpected string fields: %q %q %q", s.Slug(), s.Name(), s.Type())
	}
	want := time.Date(2021, 1, 5, 10, 20, 30, 123456000, time.UTC)
	if !s.Date().Equal(want) {
		t.Errorf("Date() = %v, want %v", s.Date(), want)
	}
	if s.Size() != 12.5 {
		t.Errorf("Size() = %v, want 12.5", s.Size())
	}
	if !s.Protected() {
		t.Error("Protected() = false, want true")
	}
	if !s.Retained() {
		t.Error("Retained() = false, want true")
	}
	if s.Status() != StatusHAOnly {
		t.Errorf("Status() = %q", s.Status())
	}
	if !s.HasSource(SourceHomeAssistant) || s.HasSource(SourceGoogleDrive) {
		t.Error("HA snapshot should only report the Home Assistant source")
	}
}

func TestSnapshotDateFormats(t *testing.T) {
	tests := []struct {
		raw  any
		want time.Time
	}{
		{"2021-02-01T00:00:00Z", time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"2021-02-01T08:00:00.5", time.Date(2021, 2, 1, 8, 0, 0, 500000000, time.UTC)},
		{"2021-02-01", time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Time{}},
		{42, time.Time{}},
		{nil, time.Time{}},
	}

	for _, tt := range tests {
		s := NewSnapshot(map[string]any{"date": tt.raw}, false)
		if got := s.Date(); !got.Equal(tt.want) {
			t.Errorf("Date() for %v = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNewSnapshot_NilInfo(t *testing.T) {
	s := NewSnapshot(nil, false)
	if s.Info() == nil {
		t.Error("Info() should never be nil")
	}
	if s.Slug() != "" || s.Size() != 0 || s.Protected() {
		t.Error("empty snapshot should have zero fields")
	}
}

func TestSnapshotImplementsSensorSnapshot(t *testing.T) {
	var _ SensorSnapshot = NewSnapshot(nil, false)
}

func TestNewSnapshot_CopiesInfo(t *testing.T) {
	raw := map[string]any{"name": "orig"}
	snap := NewSnapshot(raw, false)

	raw["name"] = "changed"
	if snap.Name() != "orig" {
		t.Errorf("Name() = %q after changing the source map, want orig", snap.Name())
	}
}
