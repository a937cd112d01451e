// Package visualizer turns the frequency-domain feed of an open capture
// session into a periodic stream of fixed-length normalized magnitude
// vectors for live waveform rendering while recording.
package visualizer
