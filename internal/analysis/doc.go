// Package analysis computes post-capture audio statistics and waveform
// envelopes from decoded sample buffers. It implements loudness (RMS),
// silence-ratio, and peak measurement plus min/max downsampling for
// static waveform rendering.
package analysis
