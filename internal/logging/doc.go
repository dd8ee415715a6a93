// Package logging provides structured logging for the hassio-snapshots tools.
//
// This package wraps a global zap logger with convenience functions. Output is
// silent unless a level is given to Initialize or set in HASSIO_SNAP_LOG_LEVEL,
// so CLI output stays clean by default.
//
// # Log Levels
//
//   - Debug: every outbound Supervisor and Home Assistant request
//   - Info: normal operations (snapshot created, sensor published)
//   - Warn: classified request failures, refused deletions
//   - Error: failures that abort a command
//
// # Usage
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
//	logging.Info("Snapshot created", zap.String("slug", slug))
//
// Tokens and URL userinfo are never written to the log.
package logging
