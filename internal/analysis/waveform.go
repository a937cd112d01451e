package analysis

import (
	"github.com/AdityaJethliya/hackcarpathia/internal/wav"
)

// Bucket is one column of a waveform envelope: the minimum and maximum
// sample value within its window. Empty marks a column whose window lies
// past the end of the sample buffer; renderers skip drawing it.
type Bucket struct {
	Min   float32 `json:"min"`
	Max   float32 `json:"max"`
	Empty bool    `json:"empty,omitempty"`
}

// Envelope is an ordered sequence of min/max pairs, one per target pixel
// column. It is derived, read-only, and discarded after render.
type Envelope []Bucket

// SampleEnvelope partitions the sample sequence into width contiguous
// windows of size ceil(N/width) and reduces each window to its min and max.
//
// The result always has exactly width entries for any width >= 0. A width of
// zero yields an empty envelope with no error. If the sample buffer is
// shorter than width, trailing windows have no data and come back marked
// Empty.
func SampleEnvelope(decoded *wav.DecodedAudio, width int) Envelope {
	if width <= 0 {
		return Envelope{}
	}

	samples := decoded.Samples
	windowSize := (len(samples) + width - 1) / width // ceil(N/width)
	if windowSize == 0 {
		windowSize = 1
	}

	envelope := make(Envelope, width)
	for col := 0; col < width; col++ {
		start := col * windowSize
		if start >= len(samples) {
			envelope[col] = Bucket{Empty: true}
			continue
		}

		end := start + windowSize
		if end > len(samples) {
			end = len(samples)
		}

		min, max := samples[start], samples[start]
		for _, s := range samples[start+1 : end] {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		envelope[col] = Bucket{Min: min, Max: max}
	}

	return envelope
}
