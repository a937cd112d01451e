package analysis

import (
	"testing"
)

func TestSampleEnvelopeWidth(t *testing.T) {
	cases := []struct {
		name       string
		numSamples int
		width      int
	}{
		{"exact multiple", 1000, 100},
		{"non-multiple", 1003, 100},
		{"width one", 500, 1},
		{"width larger than input", 10, 50},
		{"empty input", 0, 20},
		{"zero width", 1000, 0},
		{"single sample", 1, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			samples := make([]float32, tc.numSamples)
			envelope := SampleEnvelope(decodedFrom(samples, 8000), tc.width)

			if len(envelope) != tc.width {
				t.Errorf("Expected exactly %d entries, got %d", tc.width, len(envelope))
			}
		})
	}
}

func TestSampleEnvelopeMinMax(t *testing.T) {
	// Two windows: [-0.5, 0.25] and [0.1, 0.9]
	samples := []float32{0.25, -0.5, 0.1, 0.9}
	envelope := SampleEnvelope(decodedFrom(samples, 8000), 2)

	if len(envelope) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(envelope))
	}

	if envelope[0].Min != -0.5 || envelope[0].Max != 0.25 {
		t.Errorf("Window 0: expected (-0.5, 0.25), got (%f, %f)", envelope[0].Min, envelope[0].Max)
	}
	if envelope[1].Min != 0.1 || envelope[1].Max != 0.9 {
		t.Errorf("Window 1: expected (0.1, 0.9), got (%f, %f)", envelope[1].Min, envelope[1].Max)
	}
	if envelope[0].Empty || envelope[1].Empty {
		t.Error("Populated windows must not be marked empty")
	}
}

func TestSampleEnvelopeShortInput(t *testing.T) {
	// 3 samples over 8 columns: windows past the data are empty
	samples := []float32{0.1, -0.2, 0.3}
	envelope := SampleEnvelope(decodedFrom(samples, 8000), 8)

	if len(envelope) != 8 {
		t.Fatalf("Expected 8 entries, got %d", len(envelope))
	}

	populated := 0
	for i, bucket := range envelope {
		if !bucket.Empty {
			populated++
			continue
		}
		if bucket.Min != 0 || bucket.Max != 0 {
			t.Errorf("Empty bucket %d must carry no sample values", i)
		}
	}

	if populated != 3 {
		t.Errorf("Expected 3 populated columns for 3 samples, got %d", populated)
	}
	for i := 3; i < 8; i++ {
		if !envelope[i].Empty {
			t.Errorf("Trailing bucket %d should be empty", i)
		}
	}
}

func TestSampleEnvelopeZeroWidth(t *testing.T) {
	envelope := SampleEnvelope(decodedFrom(make([]float32, 100), 8000), 0)
	if len(envelope) != 0 {
		t.Errorf("Expected empty envelope for zero width, got %d entries", len(envelope))
	}
}
