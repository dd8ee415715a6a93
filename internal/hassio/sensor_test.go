package hassio

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeSnapshot struct {
	name    string
	date    time.Time
	status  string
	sources []string
}

func (f fakeSnapshot) Name() string    { return f.name }
func (f fakeSnapshot) Date() time.Time { return f.date }
func (f fakeSnapshot) Status() string  { return f.status }
func (f fakeSnapshot) HasSource(source string) bool {
	for _, s := range f.sources {
		if s == source {
			return true
		}
	}
	return false
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildSnapshotsSensorPayload_Empty(t *testing.T) {
	got := BuildSnapshotsSensorPayload("ok", nil)

	want := SensorPayload{
		State: "ok",
		Attributes: map[string]any{
			"friendly_name":             "Snapshot State",
			"last_snapshot":             "Never",
			"snapshots_in_google_drive": 0,
			"snapshots_in_hassio":       0,
			"snapshots":                 []SnapshotSummary{},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSnapshotsSensorPayload_CloudAndLocal(t *testing.T) {
	a := fakeSnapshot{name: "A", date: day(2021, 1, 1), status: "Drive Only", sources: []string{SourceGoogleDrive}}
	b := fakeSnapshot{name: "B", date: day(2021, 2, 1), status: "HA Only", sources: []string{SourceHomeAssistant}}

	got := BuildSnapshotsSensorPayload("ok", []SensorSnapshot{a, b})

	want := SensorPayload{
		State: "ok",
		Attributes: map[string]any{
			"friendly_name":             "Snapshot State",
			"last_snapshot":             "2021-02-01T00:00:00+00:00",
			"snapshots_in_google_drive": 1,
			"snapshots_in_hassio":       1,
			"snapshots": []SnapshotSummary{
				{Name: "A", Date: "2021-01-01T00:00:00+00:00", Status: "Drive Only"},
				{Name: "B", Date: "2021-02-01T00:00:00+00:00", Status: "HA Only"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSnapshotsSensorPayload_IndependentCategories(t *testing.T) {
	both := fakeSnapshot{name: "both", date: day(2021, 3, 1), sources: []string{SourceGoogleDrive, SourceHomeAssistant}}
	neither := fakeSnapshot{name: "neither", date: day(2021, 1, 1)}

	got := BuildSnapshotsSensorPayload("waiting", []SensorSnapshot{neither, both})

	if got.Attributes["snapshots_in_google_drive"] != 1 {
		t.Errorf("snapshots_in_google_drive = %v, want 1", got.Attributes["snapshots_in_google_drive"])
	}
	if got.Attributes["snapshots_in_hassio"] != 1 {
		t.Errorf("snapshots_in_hassio = %v, want 1", got.Attributes["snapshots_in_hassio"])
	}
	if got.State != "waiting" {
		t.Errorf("State = %v, want waiting", got.State)
	}
}

func TestBuildSnapshotsSensorPayload_LatestNotLast(t *testing.T) {
	snaps := []SensorSnapshot{
		fakeSnapshot{name: "mid", date: day(2021, 2, 1)},
		fakeSnapshot{name: "new", date: day(2021, 5, 1)},
		fakeSnapshot{name: "old", date: day(2020, 1, 1)},
	}

	got := BuildSnapshotsSensorPayload("ok", snaps)

	if got.Attributes["last_snapshot"] != "2021-05-01T00:00:00+00:00" {
		t.Errorf("last_snapshot = %v", got.Attributes["last_snapshot"])
	}
	summary := got.Attributes["snapshots"].([]SnapshotSummary)
	names := []string{summary[0].Name, summary[1].Name, summary[2].Name}
	if diff := cmp.Diff([]string{"mid", "new", "old"}, names); diff != "" {
		t.Errorf("summary order changed (-want +got):\n%s", diff)
	}
}

func TestBuildSnapshotsSensorPayload_Deterministic(t *testing.T) {
	snaps := []SensorSnapshot{
		fakeSnapshot{name: "x", date: day(2021, 2, 1), sources: []string{SourceHomeAssistant}},
		fakeSnapshot{name: "y", date: day(2021, 2, 1), sources: []string{SourceGoogleDrive}},
	}

	first := BuildSnapshotsSensorPayload("ok", snaps)
	second := BuildSnapshotsSensorPayload("ok", snaps)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("payload not deterministic:\n%s", diff)
	}
}

func TestStaleSensorPayload(t *testing.T) {
	got := staleSensorPayload(false)
	want := SensorPayload{State: false, Attributes: map[string]any{"friendly_name": "Snapshots Stale"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}
