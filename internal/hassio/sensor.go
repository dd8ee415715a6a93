package hassio

import "time"

// SensorPayload is the body posted to a Home Assistant state endpoint
type SensorPayload struct {
	State      any            `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// SnapshotSummary is one entry of the snapshots sensor's "snapshots" attribute
type SnapshotSummary struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Status string `json:"state"`
}

// NeverBackedUp is reported as last_snapshot when there are no snapshots
const NeverBackedUp = "Never"

// sensorDateLayout is ISO 8601 with a numeric offset, e.g. 2021-02-01T00:00:00+00:00
const sensorDateLayout = "2006-01-02T15:04:05.999999-07:00"

// isoDate renders a snapshot date for the sensor
func isoDate(t time.Time) string {
	return t.Format(sensorDateLayout)
}

// BuildSnapshotsSensorPayload aggregates snapshots into the sensor.snapshot_backup
// payload. It performs no I/O. Summary order follows the input order; the
// cloud and local counts are independent.
func BuildSnapshotsSensorPayload(state string, snapshots []SensorSnapshot) SensorPayload {
	last := NeverBackedUp
	var latest time.Time
	cloud, local := 0, 0
	summary := make([]SnapshotSummary, 0, len(snapshots))

	for i, s := range snapshots {
		date := s.Date()
		if i == 0 || date.After(latest) {
			latest = date
			last = isoDate(date)
		}
		if s.HasSource(SourceGoogleDrive) {
			cloud++
		}
		if s.HasSource(SourceHomeAssistant) {
			local++
		}
		summary = append(summary, SnapshotSummary{
			Name:   s.Name(),
			Date:   isoDate(date),
			Status: s.Status(),
		})
	}

	return SensorPayload{
		State: state,
		Attributes: map[string]any{
			"friendly_name":             "Snapshot State",
			"last_snapshot":             last,
			"snapshots_in_google_drive": cloud,
			"snapshots_in_hassio":       local,
			"snapshots":                 summary,
		},
	}
}

// staleSensorPayload is the body for binary_sensor.snapshots_stale
func staleSensorPayload(stale bool) SensorPayload {
	return SensorPayload{
		State: stale,
		Attributes: map[string]any{
			"friendly_name": "Snapshots Stale",
		},
	}
}
