// Package ui renders terminal output for the hassio-snap CLI.
//
// Components are plain Lipgloss renderers that return strings; nothing here
// runs an event loop. Commands print a Header, then their body (a snapshot
// table or info listing), then a Result box.
//
//	fmt.Println(ui.NewHeader("Snapshots", "hassio-snap snapshots", nil).Render())
//	fmt.Println(ui.RenderSnapshotTable(list))
//
// Prompter handles the two interactive cases: typing "I AGREE" before a
// restore, and reading a snapshot password without echo.
//
// Logging is controlled separately via HASSIO_SNAP_LOG_LEVEL, so zap output
// stays out of the rendered UI unless asked for.
package ui
