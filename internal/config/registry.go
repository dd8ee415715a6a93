package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/hassio-snapshots/internal/logging"
)

const (
	appName    = "hassio-snapshots"
	configFile = "config.yaml"

	// ConfigPathEnvVar overrides the configuration file location
	ConfigPathEnvVar = "HASSIO_SNAP_CONFIG"
)

var (
	// Global registry instance (loaded lazily)
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
	globalRegistryErr  error

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory for the application.
//   - Linux: $XDG_CONFIG_HOME/hassio-snapshots or $HOME/.config/hassio-snapshots
//   - macOS: $HOME/.config/hassio-snapshots
//   - Windows: %LOCALAPPDATA%\hassio-snapshots
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the configuration file.
// HASSIO_SNAP_CONFIG takes precedence over the platform default.
func GetConfigPath() (string, error) {
	if override := os.Getenv(ConfigPathEnvVar); override != "" {
		return override, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// LoadRegistry loads the configuration registry from the default path.
// If the file doesn't exist, returns a new default registry.
// Thread-safe - multiple calls will return the same instance.
func LoadRegistry() (*Registry, error) {
	globalRegistryOnce.Do(func() {
		var path string
		path, globalRegistryErr = GetConfigPath()
		if globalRegistryErr != nil {
			globalRegistryErr = fmt.Errorf("failed to get config path: %w", globalRegistryErr)
			return
		}
		globalRegistry, globalRegistryErr = LoadFile(path)
	})
	return globalRegistry, globalRegistryErr
}

// LoadFile loads a registry from path. A missing file yields defaults, which
// are written to path straight away so the generated client identifier is
// stable across runs.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		registry := NewRegistry()
		registry.path = path
		registry.persistIdentity()
		return registry, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if registry.Version != currentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", registry.Version, currentVersion)
	}

	if registry.SupervisorBaseURL == "" {
		registry.SupervisorBaseURL = DefaultSupervisorURL
	}
	if registry.HomeAssistantBaseURL == "" {
		registry.HomeAssistantBaseURL = DefaultHomeAssistantURL
	}
	slices.Sort(registry.RetainedSnapshots)
	registry.RetainedSnapshots = slices.Compact(registry.RetainedSnapshots)
	registry.path = path

	if registry.ClientID == "" {
		registry.ClientID = newClientID()
		registry.persistIdentity()
	}

	return &registry, nil
}

// persistIdentity saves a newly generated client identifier. A read-only
// config location is not fatal; the identifier then lasts for this run only.
func (r *Registry) persistIdentity() {
	if err := r.Save(); err != nil {
		logging.Warn("Failed to save client identifier",
			zap.String("path", r.path),
			zap.Error(err),
		)
	}
}

// Path returns the file this registry is saved to.
func (r *Registry) Path() string {
	return r.path
}

// Save saves the registry to disk.
// Performs an atomic write to prevent corruption on crash.
func (r *Registry) Save() error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	configPath := r.path
	if configPath == "" {
		var err error
		if configPath, err = GetConfigPath(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		r.path = configPath
	}

	// User-only permissions: the file may hold a token
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# hassio-snapshots configuration
# token may be left empty; HASSIO_TOKEN is used instead.
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// ReloadRegistry reloads the registry from disk, discarding any in-memory changes.
func ReloadRegistry() (*Registry, error) {
	fileMutex.Lock()
	globalRegistryOnce = sync.Once{}
	fileMutex.Unlock()
	return LoadRegistry()
}
