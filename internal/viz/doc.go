// Package viz renders missions in the terminal: asciigraph charts of the
// trajectory and the gain schedule, lipgloss tables and styles, and a
// bubbletea live view.
//
// # Live view keys
//
//	Space - Pause/Resume
//	S     - Single step
//	+/-   - Steps per frame
//	R     - Restart with a fresh mission
//	Q     - Quit
package viz
