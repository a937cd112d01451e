// Package capture implements the recording state machine. It orchestrates
// the device session, chunk accumulation, and the live visualizer feed, and
// finalizes recordings into a single blob in the device's native capture
// container.
package capture
