package analysis

import (
	"math"

	"github.com/AdityaJethliya/hackcarpathia/internal/wav"
)

// SilenceThreshold is the absolute amplitude below which a sample counts as
// silent. Matches the level used when the silence percentage is shown next
// to a finished recording.
const SilenceThreshold = 0.01

// Statistics holds derived measurements for a decoded recording.
type Statistics struct {
	DurationSeconds float64 `json:"duration_seconds"`
	RMS             float64 `json:"rms"`
	VolumePercent   float64 `json:"volume_percent"`
	SilencePercent  float64 `json:"silence_percent"`
	PeakAmplitude   float32 `json:"peak_amplitude"`
}

// Analyze computes statistics over the full sample buffer.
//
// Duration is taken from the decoded audio's reported duration rather than
// recomputed from the sample count, so it stays correct even if sample-rate
// metadata and actual buffer length diverge slightly.
func Analyze(decoded *wav.DecodedAudio) Statistics {
	stats := Statistics{
		DurationSeconds: decoded.DurationSeconds,
	}

	if len(decoded.Samples) == 0 {
		return stats
	}

	var sumSquares float64
	var silent int
	var peak float32

	for _, s := range decoded.Samples {
		sumSquares += float64(s) * float64(s)

		abs := s
		if abs < 0 {
			abs = -abs
		}
		if abs < SilenceThreshold {
			silent++
		}
		if abs > peak {
			peak = abs
		}
	}

	stats.RMS = math.Sqrt(sumSquares / float64(len(decoded.Samples)))
	stats.VolumePercent = stats.RMS * 100
	stats.SilencePercent = float64(silent) / float64(len(decoded.Samples)) * 100
	stats.PeakAmplitude = peak

	return stats
}
