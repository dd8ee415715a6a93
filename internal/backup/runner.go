package backup

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/muurk/hassio-snapshots/internal/hassio"
	"github.com/muurk/hassio-snapshots/internal/logging"
)

// Sensor states published to sensor.snapshot_backup
const (
	StateWaiting  = "waiting"
	StateBackedUp = "backed_up"
	StateError    = "error"
)

// DefaultStaleAfter is how old the newest snapshot may get before the stale
// sensor turns on
const DefaultStaleAfter = 3 * 24 * time.Hour

// Gateway is the part of hassio.Gateway the runner drives
type Gateway interface {
	CreateSnapshot(info map[string]any) (map[string]any, error)
	SnapshotList() ([]*hassio.Snapshot, error)
	EventSnapshotStart(name string, at time.Time) error
	EventSnapshotEnd(name string, at time.Time, completed bool) error
	UpdateSnapshotsSensor(state string, snapshots []hassio.SensorSnapshot) error
	UpdateSnapshotStaleSensor(stale bool) error
	SendNotification(title, message string) error
	DismissNotification() error
}

// Request describes a snapshot to create
type Request struct {
	Name     string   // Defaults to a timestamped name
	Folders  []string // Non-empty makes the snapshot partial
	Addons   []string // Non-empty makes the snapshot partial
	Password string
}

// Result is what a successful Create produced
type Result struct {
	Slug     string
	Name     string
	Started  time.Time
	Finished time.Time
}

// Runner creates snapshots and keeps Home Assistant's view of them current
type Runner struct {
	gw         Gateway
	clock      clockwork.Clock
	StaleAfter time.Duration
}

// NewRunner creates a runner; a nil clock means the real clock
func NewRunner(gw Gateway, clock clockwork.Clock) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{gw: gw, clock: clock, StaleAfter: DefaultStaleAfter}
}

// Create fires snapshot_started, creates the snapshot, fires snapshot_ended
// and republishes the sensors. A failed creation raises the persistent
// notification; a successful one dismisses it.
func (r *Runner) Create(req Request) (*Result, error) {
	started := r.clock.Now()
	name := req.Name
	if name == "" {
		name = "Snapshot " + started.Format("2006-01-02 15:04")
	}

	if err := r.gw.EventSnapshotStart(name, started); err != nil {
		logging.Warn("Failed to fire snapshot start event", zap.Error(err))
	}

	info := map[string]any{"name": name}
	if len(req.Folders) > 0 {
		info["folders"] = req.Folders
	}
	if len(req.Addons) > 0 {
		info["addons"] = req.Addons
	}
	if req.Password != "" {
		info["password"] = req.Password
	}

	data, createErr := r.gw.CreateSnapshot(info)
	finished := r.clock.Now()

	if err := r.gw.EventSnapshotEnd(name, finished, createErr == nil); err != nil {
		logging.Warn("Failed to fire snapshot end event", zap.Error(err))
	}

	if createErr != nil {
		if err := r.gw.SendNotification("Snapshot failed", fmt.Sprintf("%s: %s", name, hassio.ShortMessage(createErr))); err != nil {
			logging.Warn("Failed to raise notification", zap.Error(err))
		}
		if err := r.gw.UpdateSnapshotsSensor(StateError, r.sensorViews()); err != nil {
			logging.Warn("Failed to publish sensor", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to create snapshot %q: %w", name, createErr)
	}

	slug, _ := data["slug"].(string)
	logging.Info("Snapshot created",
		zap.String("slug", slug),
		zap.String("name", name),
		zap.Duration("elapsed", finished.Sub(started)),
	)

	if err := r.gw.DismissNotification(); err != nil {
		logging.Warn("Failed to dismiss notification", zap.Error(err))
	}
	if err := r.PublishState(); err != nil {
		return nil, err
	}

	return &Result{Slug: slug, Name: name, Started: started, Finished: finished}, nil
}

// PublishState pushes sensor.snapshot_backup and binary_sensor.snapshots_stale
// from the Supervisor's current snapshot list.
func (r *Runner) PublishState() error {
	list, err := r.gw.SnapshotList()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	views := toSensorViews(list)

	state := StateWaiting
	if len(views) > 0 {
		state = StateBackedUp
	}

	if err := r.gw.UpdateSnapshotsSensor(state, views); err != nil {
		return fmt.Errorf("failed to publish snapshot sensor: %w", err)
	}
	if err := r.gw.UpdateSnapshotStaleSensor(r.IsStale(views)); err != nil {
		return fmt.Errorf("failed to publish stale sensor: %w", err)
	}
	return nil
}

// sensorViews lists the Supervisor's snapshots for the error state. The
// sensor is still published, with no snapshots, when listing fails too.
func (r *Runner) sensorViews() []hassio.SensorSnapshot {
	list, err := r.gw.SnapshotList()
	if err != nil {
		logging.Warn("Failed to list snapshots for error state", zap.Error(err))
		return nil
	}
	return toSensorViews(list)
}

func toSensorViews(list []*hassio.Snapshot) []hassio.SensorSnapshot {
	views := make([]hassio.SensorSnapshot, 0, len(list))
	for _, s := range list {
		views = append(views, s)
	}
	return views
}

// IsStale reports whether the newest snapshot is older than StaleAfter.
// No snapshots at all counts as stale.
func (r *Runner) IsStale(snapshots []hassio.SensorSnapshot) bool {
	var newest time.Time
	for _, s := range snapshots {
		if d := s.Date(); d.After(newest) {
			newest = d
		}
	}
	if newest.IsZero() {
		return true
	}
	return r.clock.Since(newest) > r.StaleAfter
}
