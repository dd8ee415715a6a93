package hassio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/hassio-snapshots/internal/logging"
	"github.com/muurk/hassio-snapshots/internal/version"
)

const (
	// NotificationID is the persistent notification raised for broken backups
	NotificationID = "backup_broken"

	// EventSnapshotStart is fired on the Home Assistant event bus before a snapshot
	EventSnapshotStart = "snapshot_started"

	// EventSnapshotEnd is fired on the Home Assistant event bus after a snapshot
	EventSnapshotEnd = "snapshot_ended"

	// eventTimeLayout renders event timestamps
	eventTimeLayout = "2006-01-02 15:04:05-07:00"
)

// Settings is the configuration the gateway reads on every call
type Settings interface {
	// SupervisorURL is the Supervisor API base, e.g. "http://hassio/"
	SupervisorURL() string
	// HomeAssistantURL is the Home Assistant API base, e.g. "http://hassio/homeassistant/api/"
	HomeAssistantURL() string
	// Token is the configured token; empty means fall back to the environment
	Token() string
	ClientIdentifier() string
	IsRetained(slug string) bool
}

// Doer sends HTTP requests. *http.Client satisfies it; timeouts and retries
// are its concern.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Gateway is the only way the rest of the program talks to the Supervisor and
// Home Assistant APIs. Each method performs one blocking request, except Delete
// which first drops the slug from the snapshot cache.
//
// A Gateway is not safe for concurrent use of Snapshot and Delete.
type Gateway struct {
	settings    Settings
	client      Doer
	credentials *Credentials
	cache       *snapshotCache
}

// NewGateway creates a gateway over the given settings and transport
func NewGateway(settings Settings, client Doer) *Gateway {
	return &Gateway{
		settings:    settings,
		client:      client,
		credentials: NewCredentials(settings),
		cache:       newSnapshotCache(),
	}
}

// Credentials exposes the gateway's credential resolver
func (g *Gateway) Credentials() *Credentials {
	return g.credentials
}

// CreateSnapshot starts a partial snapshot when info names folders or addons,
// otherwise a full one, and returns the Supervisor's data.
func (g *Gateway) CreateSnapshot(info map[string]any) (map[string]any, error) {
	path := "snapshots/new/full"
	_, hasFolders := info["folders"]
	_, hasAddons := info["addons"]
	if hasFolders || hasAddons {
		path = "snapshots/new/partial"
	}
	return g.postSupervisorJSON(path, info)
}

// Auth checks a Home Assistant user's credentials through the Supervisor
func (g *Gateway) Auth(user, password string) error {
	_, err := g.postSupervisorJSON("auth", map[string]any{
		"username": user,
		"password": password,
	})
	return err
}

// Upload streams a snapshot archive to the Supervisor and returns the new
// snapshot's info. The stream is sent as-is, not JSON encoded.
func (g *Gateway) Upload(stream io.Reader) (map[string]any, error) {
	return g.supervisorRequest(http.MethodPost, "snapshots/new/upload", stream, "")
}

// Delete removes slug from the cache and then asks the Supervisor to delete
// it. The cache entry is gone even when the request fails. A 400 from the
// Supervisor is reported as a DeletionRefused error.
func (g *Gateway) Delete(slug string) error {
	g.cache.invalidate(slug)

	_, err := g.postSupervisorJSON(snapshotPath(slug, "remove"), map[string]any{})
	if err == nil {
		return nil
	}
	if gwErr, ok := asGatewayError(err); ok && gwErr.Type == ErrTypeTransport && gwErr.StatusCode == http.StatusBadRequest {
		refused := NewDeletionRefusedError(slug, gwErr)
		logging.Warn("Snapshot deletion refused", zap.String("slug", slug))
		return refused
	}
	return err
}

// Snapshot returns the view for slug, fetching its info only when it is not
// already cached. Retained always reflects current settings.
func (g *Gateway) Snapshot(slug string) (*Snapshot, error) {
	info, ok := g.cache.get(slug)
	if !ok {
		fetched, err := g.getSupervisor(snapshotPath(slug, "info"))
		if err != nil {
			return nil, err
		}
		g.cache.put(slug, fetched)
		info = fetched
	}
	return NewSnapshot(info, g.settings.IsRetained(slug)), nil
}

// Snapshots returns the Supervisor's snapshot list. The cache is not used.
func (g *Gateway) Snapshots() (map[string]any, error) {
	return g.getSupervisor("snapshots")
}

// SnapshotList is Snapshots decoded into views
func (g *Gateway) SnapshotList() ([]*Snapshot, error) {
	data, err := g.Snapshots()
	if err != nil {
		return nil, err
	}
	raw, _ := data["snapshots"].([]any)
	list := make([]*Snapshot, 0, len(raw))
	for _, item := range raw {
		info, ok := item.(map[string]any)
		if !ok {
			continue
		}
		list = append(list, NewSnapshot(info, g.settings.IsRetained(stringField(info, "slug"))))
	}
	return list, nil
}

// HAInfo returns Home Assistant core information from the Supervisor
func (g *Gateway) HAInfo() (map[string]any, error) {
	return g.getSupervisor("homeassistant/info")
}

// SelfInfo returns this add-on's information
func (g *Gateway) SelfInfo() (map[string]any, error) {
	return g.getSupervisor("addons/self/info")
}

// HassOSInfo returns host operating system information
func (g *Gateway) HassOSInfo() (map[string]any, error) {
	return g.getSupervisor("hassos/info")
}

// Info returns general Supervisor host information
func (g *Gateway) Info() (map[string]any, error) {
	return g.getSupervisor("info")
}

// SupervisorInfo returns the Supervisor's own information
func (g *Gateway) SupervisorInfo() (map[string]any, error) {
	return g.getSupervisor("supervisor/info")
}

// RefreshSnapshots asks the Supervisor to rescan its snapshot store
func (g *Gateway) RefreshSnapshots() (map[string]any, error) {
	return g.supervisorRequest(http.MethodPost, "snapshots/reload", nil, "")
}

// Restore performs a full restore of slug. The password is only sent when
// non-empty.
func (g *Gateway) Restore(slug, password string) error {
	body := map[string]any{}
	if password != "" {
		body["password"] = password
	}
	_, err := g.postSupervisorJSON(snapshotPath(slug, "restore/full"), body)
	return err
}

// Download returns a request handle for slug's archive; nothing is fetched.
func (g *Gateway) Download(slug string) *DownloadRequest {
	return &DownloadRequest{
		URL:    g.supervisorURL(snapshotPath(slug, "download")),
		Header: g.supervisorHeaders(),
	}
}

// UpdateConfig replaces this add-on's options
func (g *Gateway) UpdateConfig(options map[string]any) error {
	_, err := g.postSupervisorJSON("addons/self/options", map[string]any{"options": options})
	return err
}

// SendNotification raises (or replaces) the backup persistent notification
func (g *Gateway) SendNotification(title, message string) error {
	return g.postHomeAssistant("services/persistent_notification/create", map[string]any{
		"title":           title,
		"message":         message,
		"notification_id": NotificationID,
	})
}

// DismissNotification clears the backup persistent notification
func (g *Gateway) DismissNotification() error {
	return g.postHomeAssistant("services/persistent_notification/dismiss", map[string]any{
		"notification_id": NotificationID,
	})
}

// EventSnapshotStart fires snapshot_started
func (g *Gateway) EventSnapshotStart(name string, at time.Time) error {
	return g.sendEvent(EventSnapshotStart, map[string]any{
		"snapshot_name": name,
		"snapshot_time": at.Format(eventTimeLayout),
	})
}

// EventSnapshotEnd fires snapshot_ended
func (g *Gateway) EventSnapshotEnd(name string, at time.Time, completed bool) error {
	return g.sendEvent(EventSnapshotEnd, map[string]any{
		"completed":     completed,
		"snapshot_name": name,
		"snapshot_time": at.Format(eventTimeLayout),
	})
}

// UpdateSnapshotStaleSensor sets binary_sensor.snapshots_stale
func (g *Gateway) UpdateSnapshotStaleSensor(stale bool) error {
	return g.postHomeAssistant("states/binary_sensor.snapshots_stale", staleSensorPayload(stale))
}

// UpdateSnapshotsSensor publishes sensor.snapshot_backup
func (g *Gateway) UpdateSnapshotsSensor(state string, snapshots []SensorSnapshot) error {
	return g.postHomeAssistant("states/sensor.snapshot_backup", BuildSnapshotsSensorPayload(state, snapshots))
}

func (g *Gateway) sendEvent(name string, data map[string]any) error {
	return g.postHomeAssistant("events/"+url.PathEscape(name), data)
}

func (g *Gateway) supervisorURL(path string) string {
	return joinURL(g.settings.SupervisorURL(), path)
}

func (g *Gateway) supervisorHeaders() http.Header {
	h := g.credentials.SupervisorHeaders()
	h.Set("User-Agent", version.UserAgent())
	return h
}

func (g *Gateway) getSupervisor(path string) (map[string]any, error) {
	return g.supervisorRequest(http.MethodGet, path, nil, "")
}

func (g *Gateway) postSupervisorJSON(path string, body any) (map[string]any, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return g.supervisorRequest(http.MethodPost, path, bytes.NewReader(encoded), "application/json")
}

func (g *Gateway) supervisorRequest(method, path string, body io.Reader, contentType string) (map[string]any, error) {
	target := g.supervisorURL(path)
	logging.LogSupervisorRequest(method, target)

	resp, err := g.do(method, target, body, contentType, g.supervisorHeaders())
	if err != nil {
		return nil, err
	}

	data, err := validateSupervisorReply(target, resp)
	if err != nil {
		logging.Warn("Supervisor request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Error(err),
		)
		return nil, err
	}
	return data, nil
}

func (g *Gateway) postHomeAssistant(path string, payload any) error {
	target := joinURL(g.settings.HomeAssistantURL(), path)
	logging.LogHomeAssistantRequest(http.MethodPost, target)

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	headers := g.credentials.HomeAssistantHeaders()
	headers.Set("User-Agent", version.UserAgent())

	resp, err := g.do(http.MethodPost, target, bytes.NewReader(encoded), "application/json", headers)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return checkStatus(target, resp)
}

func (g *Gateway) do(method, target string, body io.Reader, contentType string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		return nil, NewTransportError(target, err)
	}
	req.Header = headers
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, NewTransportError(target, err)
	}
	return resp, nil
}

func snapshotPath(slug, action string) string {
	return "snapshots/" + url.PathEscape(slug) + "/" + action
}

// joinURL appends path to base with exactly one slash between them
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
