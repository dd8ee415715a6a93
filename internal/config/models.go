package config

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultSupervisorURL is where the Supervisor API is reachable from inside an add-on
	DefaultSupervisorURL = "http://hassio/"

	// DefaultHomeAssistantURL is the Supervisor's proxy to the Home Assistant core API
	DefaultHomeAssistantURL = "http://hassio/homeassistant/api/"

	currentVersion = 1
)

// Registry represents the entire user configuration file.
// It implements hassio.Settings.
type Registry struct {
	Version              int      `yaml:"version"`
	SupervisorBaseURL    string   `yaml:"supervisor_url"`
	HomeAssistantBaseURL string   `yaml:"home_assistant_url"`
	ConfiguredToken      string   `yaml:"token,omitempty"` // Empty means use HASSIO_TOKEN
	ClientID             string   `yaml:"client_identifier,omitempty"`
	RetainedSnapshots    []string `yaml:"retained_snapshots,omitempty"` // Slugs never deleted by cleanup
	LogLevel             string   `yaml:"log_level,omitempty"`

	path string
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:              currentVersion,
		SupervisorBaseURL:    DefaultSupervisorURL,
		HomeAssistantBaseURL: DefaultHomeAssistantURL,
		ClientID:             newClientID(),
	}
}

// SupervisorURL returns the Supervisor API base, always ending in "/".
func (r *Registry) SupervisorURL() string {
	return withTrailingSlash(r.SupervisorBaseURL, DefaultSupervisorURL)
}

// HomeAssistantURL returns the Home Assistant API base, always ending in "/".
func (r *Registry) HomeAssistantURL() string {
	return withTrailingSlash(r.HomeAssistantBaseURL, DefaultHomeAssistantURL)
}

// Token returns the configured token as stored, which may be empty.
func (r *Registry) Token() string {
	return r.ConfiguredToken
}

// ClientIdentifier returns this installation's identifier. A registry that
// has none (built by hand rather than loaded) gets one generated and saved.
func (r *Registry) ClientIdentifier() string {
	if r.ClientID == "" {
		r.ClientID = newClientID()
		if r.path != "" {
			r.persistIdentity()
		}
	}
	return r.ClientID
}

func newClientID() string {
	return uuid.NewString()
}

// IsRetained reports whether slug is marked to be kept.
func (r *Registry) IsRetained(slug string) bool {
	return slices.Contains(r.RetainedSnapshots, slug)
}

// SetRetained marks or unmarks slug. The list stays sorted.
func (r *Registry) SetRetained(slug string, retained bool) {
	idx, found := slices.BinarySearch(r.RetainedSnapshots, slug)
	switch {
	case retained && !found:
		r.RetainedSnapshots = slices.Insert(r.RetainedSnapshots, idx, slug)
	case !retained && found:
		r.RetainedSnapshots = slices.Delete(r.RetainedSnapshots, idx, idx+1)
	}
}

// Set updates a setting by its YAML key. Used by "config set".
func (r *Registry) Set(key, value string) error {
	switch key {
	case "supervisor_url":
		r.SupervisorBaseURL = value
	case "home_assistant_url":
		r.HomeAssistantBaseURL = value
	case "token":
		r.ConfiguredToken = strings.TrimSpace(value)
	case "client_identifier":
		r.ClientID = value
	case "log_level":
		r.LogLevel = value
	default:
		return &UnknownKeyError{Key: key}
	}
	return nil
}

// UnknownKeyError is returned by Set for keys that are not settings
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return "unknown setting: " + e.Key
}

func withTrailingSlash(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasSuffix(value, "/") {
		value += "/"
	}
	return value
}
