// Package viz provides the terminal front end for the pendulum simulator.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [App]: preset menu and start-up settings
//   - [Model]: live view that steps a [sim.Simulator] once per frame
//   - [Canvas]: Braille-based pixel canvas; the pendulum is drawn as an
//     orthographic projection onto the xz, yz or xy plane
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to the initial state (always resumes)
//	Tab   - Select parameter, Up/Down to change it and restart
//	V     - Cycle view plane
//	T     - Cycle color themes
//	S     - Save an SVG snapshot
//	G     - Toggle GIF recording
//	?     - Show help overlay
package viz
