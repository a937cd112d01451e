package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrorCode classifies device acquisition and capture failures.
type ErrorCode string

const (
	// PermissionDenied means the user or platform refused microphone access.
	PermissionDenied ErrorCode = "permission_denied"
	// NotFound means no capture device matched the requested constraints.
	NotFound ErrorCode = "device_not_found"
	// HardwareFailure means the device was acquired but stopped working.
	HardwareFailure ErrorCode = "hardware_failure"
)

// DeviceError is fatal to the current capture session. It is surfaced to the
// caller and never retried automatically.
type DeviceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("device %s: %s", e.Code, e.Message)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a DeviceError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr) && devErr.Code == code
}

// Constraints describes the requested capture stream. The processing flags
// map directly to the host capture stack's echo cancellation, noise
// suppression, and automatic gain control switches.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool

	SampleRate int // requested rate; the device reports the negotiated one

	// Container negotiation: the session uses PreferredMIMEType when the
	// device supports it and falls back to FallbackMIMEType otherwise.
	PreferredMIMEType string
	FallbackMIMEType  string
}

// DefaultConstraints returns the capture constraints used for voice
// recording: all three processing stages enabled, 48kHz, opus-in-webm with
// an ogg fallback.
func DefaultConstraints() Constraints {
	return Constraints{
		EchoCancellation:  true,
		NoiseSuppression:  true,
		AutoGainControl:   true,
		SampleRate:        48000,
		PreferredMIMEType: "audio/webm;codecs=opus",
		FallbackMIMEType:  "audio/ogg;codecs=opus",
	}
}

// FrequencyBinCount is the length of the frequency-domain magnitude snapshot
// a session exposes while capturing. Magnitudes are bytes in [0, 255].
const FrequencyBinCount = 256

// Feed is the per-open capture stream a Driver implements. Start begins
// periodic chunk emission at the given interval, invoking emit from the
// feed's own goroutine for every encoded chunk. FrequencyBins fills dst with
// the current magnitude snapshot and returns the number of bins written.
// Stop ends emission and releases the underlying hardware; it must be safe
// to call before Start and more than once.
type Feed interface {
	Start(interval time.Duration, emit func(chunk []byte)) error
	FrequencyBins(dst []byte) int
	Stop() error
}

// Driver acquires capture devices. Only one open session is permitted
// system-wide at a time; that exclusivity is a contract of the underlying
// hardware and is enforced by caller discipline, not here.
type Driver interface {
	Open(ctx context.Context, constraints Constraints) (*Session, error)
}

// Session is an opaque handle to an open microphone stream. It is exclusively
// owned by the controller that opened it and must be released on every exit
// path, including failure.
type Session struct {
	feed       Feed
	sampleRate int
	mimeType   string

	mu     sync.Mutex
	closed bool
}

// NewSession wraps a negotiated device feed. Drivers call this from Open.
func NewSession(feed Feed, sampleRate int, mimeType string) *Session {
	return &Session{
		feed:       feed,
		sampleRate: sampleRate,
		mimeType:   mimeType,
	}
}

// SampleRate returns the device-reported sample rate.
func (s *Session) SampleRate() int {
	return s.sampleRate
}

// MIMEType returns the negotiated capture container type.
func (s *Session) MIMEType() string {
	return s.mimeType
}

// Channels returns the channel count. Capture is always mono.
func (s *Session) Channels() int {
	return 1
}

// Start begins periodic chunk emission. It fails once the session is closed.
func (s *Session) Start(interval time.Duration, emit func(chunk []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &DeviceError{Code: HardwareFailure, Message: "session already closed"}
	}

	return s.feed.Start(interval, emit)
}

// FrequencyBins fills dst with the current frequency-domain magnitude
// snapshot. After Close it writes nothing and returns 0.
func (s *Session) FrequencyBins(dst []byte) int {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return 0
	}
	return s.feed.FrequencyBins(dst)
}

// Close releases all underlying capture resources, even if the session was
// never started. It is idempotent: a second Close is a no-op returning nil.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.feed.Stop()
}

// Closed reports whether the session has been released.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
