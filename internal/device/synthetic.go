package device

import (
	"context"
	"math"
	"sync"
	"time"
)

// SyntheticDriver produces a deterministic tone feed instead of touching
// real hardware. The CLI uses it in --driver synthetic mode and the test
// suites use it everywhere a live microphone would be needed.
type SyntheticDriver struct {
	// OpenError, when set, is returned by Open instead of a session.
	// Lets callers exercise the device failure paths.
	OpenError *DeviceError

	// ToneHz is the generated tone frequency. Defaults to 440.
	ToneHz float64

	// Amplitude of the generated tone in [0, 1]. Defaults to 0.5.
	Amplitude float64
}

// Open acquires a synthetic capture feed honoring the negotiation rules:
// the preferred container type is reported as unsupported when it is empty,
// in which case the fallback is used.
func (d *SyntheticDriver) Open(_ context.Context, constraints Constraints) (*Session, error) {
	if d.OpenError != nil {
		return nil, d.OpenError
	}

	sampleRate := constraints.SampleRate
	if sampleRate <= 0 {
		sampleRate = 48000
	}

	mimeType := constraints.PreferredMIMEType
	if mimeType == "" {
		mimeType = constraints.FallbackMIMEType
	}

	toneHz := d.ToneHz
	if toneHz == 0 {
		toneHz = 440
	}
	amplitude := d.Amplitude
	if amplitude == 0 {
		amplitude = 0.5
	}

	feed := &syntheticFeed{
		sampleRate: sampleRate,
		toneHz:     toneHz,
		amplitude:  amplitude,
	}

	return NewSession(feed, sampleRate, mimeType), nil
}

// syntheticFeed generates PCM chunks of a fixed tone and a matching
// frequency-domain snapshot with a single spectral peak.
type syntheticFeed struct {
	sampleRate int
	toneHz     float64
	amplitude  float64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stopped bool
	phase   float64
}

func (f *syntheticFeed) Start(interval time.Duration, emit func(chunk []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return &DeviceError{Code: HardwareFailure, Message: "feed already stopped"}
	}
	if f.started {
		return &DeviceError{Code: HardwareFailure, Message: "feed already started"}
	}
	f.started = true

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})

	samplesPerChunk := int(float64(f.sampleRate) * interval.Seconds())

	go func() {
		defer close(f.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				emit(f.nextChunk(samplesPerChunk))
			}
		}
	}()

	return nil
}

// nextChunk renders the next tone segment as 16-bit little-endian PCM,
// carrying the oscillator phase across chunks.
func (f *syntheticFeed) nextChunk(samples int) []byte {
	f.mu.Lock()
	phase := f.phase
	step := 2 * math.Pi * f.toneHz / float64(f.sampleRate)
	f.phase = math.Mod(phase+step*float64(samples), 2*math.Pi)
	f.mu.Unlock()

	chunk := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(f.amplitude * 32767 * math.Sin(phase+step*float64(i)))
		chunk[i*2] = byte(v)
		chunk[i*2+1] = byte(v >> 8)
	}
	return chunk
}

// FrequencyBins paints a spectral peak at the tone's bin with a quiet noise
// floor elsewhere, byte magnitudes like a real analyser would report.
func (f *syntheticFeed) FrequencyBins(dst []byte) int {
	n := len(dst)
	if n > FrequencyBinCount {
		n = FrequencyBinCount
	}

	// Bin index for the tone, assuming bins span 0..sampleRate/2.
	peak := int(f.toneHz / (float64(f.sampleRate) / 2) * float64(FrequencyBinCount))
	if peak >= n {
		peak = n - 1
	}

	for i := 0; i < n; i++ {
		dist := math.Abs(float64(i - peak))
		mag := 220*math.Exp(-dist*dist/8) + 12
		dst[i] = byte(mag)
	}
	return n
}

func (f *syntheticFeed) Stop() error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	cancel := f.cancel
	done := f.done
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
