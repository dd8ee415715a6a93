// Package config manages the hassio-snapshots settings file.
//
// The settings are stored as YAML in a platform-appropriate location:
//   - Linux: $XDG_CONFIG_HOME/hassio-snapshots/config.yaml or $HOME/.config/hassio-snapshots/config.yaml
//   - macOS: $HOME/.config/hassio-snapshots/config.yaml
//   - Windows: %LOCALAPPDATA%\hassio-snapshots\config.yaml
//
// HASSIO_SNAP_CONFIG points at a different file.
//
// # Settings
//
//	version: 1
//	supervisor_url: http://hassio/
//	home_assistant_url: http://hassio/homeassistant/api/
//	token: ""                  # empty: use HASSIO_TOKEN
//	client_identifier: 6f1c... # generated on first use
//	retained_snapshots: [a1b2c3d4]
//
// A *Registry satisfies hassio.Settings, so it can be handed straight to
// hassio.NewGateway. The file is written atomically with 0600 permissions
// because it may contain a token.
package config
