// Package wav implements encoding and decoding of the uncompressed PCM WAV
// container used for raw recording uploads and local playback. It produces
// the canonical 44-byte header layout with mono 16-bit little-endian samples.
package wav
