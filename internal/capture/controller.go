package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AdityaJethliya/hackcarpathia/internal/device"
	"github.com/AdityaJethliya/hackcarpathia/internal/metrics"
	"github.com/AdityaJethliya/hackcarpathia/internal/visualizer"
)

// State is the controller's recording state.
type State int

// Discard has no state of its own: it releases the session and returns the
// controller to Idle, with the discarded condition tracked on the session
// via Released.
const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// TransitionError rejects an operation that is invalid in the current
// state. It is a programming error on the caller's side, reported rather
// than silently ignored so state corruption cannot hide.
type TransitionError struct {
	Op   string
	From State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s from state %s", e.Op, e.From)
}

// DefaultChunkInterval is the chunk emission cadence while recording.
const DefaultChunkInterval = 100 * time.Millisecond

// Config contains capture controller configuration.
type Config struct {
	// ChunkInterval is the periodic chunk emission interval.
	// Zero means DefaultChunkInterval.
	ChunkInterval time.Duration

	// Constraints passed to the device driver on Start.
	Constraints device.Constraints

	// Visualizer controls the live frame feed of each recording.
	Visualizer visualizer.Config
}

// Controller drives the recording state machine over a device driver.
//
// All state transitions are serialized: chunk arrival, timer ticks, and
// visualization ticks are independent periodic sources, but mutation happens
// through a single writer goroutine fed by message passing, and transitions
// hold the controller mutex for their full duration, including the device
// acquisition suspension.
type Controller struct {
	driver  device.Driver
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics // optional

	mu      sync.Mutex
	state   State
	session *RecordingSession
	dev     *device.Session
	viz     *visualizer.Visualizer

	// Per-recording plumbing, replaced on every Start.
	chunkCh  chan []byte
	stopFlag *atomic.Bool
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// NewController creates a capture controller. The metrics collector may be
// nil when the process does not export metrics.
func NewController(driver device.Driver, config Config, logger *slog.Logger, m *metrics.Metrics) *Controller {
	if config.ChunkInterval <= 0 {
		config.ChunkInterval = DefaultChunkInterval
	}

	return &Controller{
		driver:  driver,
		config:  config,
		logger:  logger,
		metrics: m,
		state:   StateIdle,
	}
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens a device session and begins a new recording.
//
// Valid from Idle, and from Stopped, where the finished session is replaced
// by the new one. A Start while already Recording is rejected, not queued.
// Device acquisition failures surface as *device.DeviceError and are not
// retried.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRecording {
		c.logger.Warn("Rejected start while recording")
		return &TransitionError{Op: "start", From: c.state}
	}

	if c.state == StateStopped && c.session != nil {
		c.logger.Info("Replacing finished recording with new session",
			slog.String("previous_session_id", c.session.id),
		)
		c.session.release()
	}

	dev, err := c.driver.Open(ctx, c.config.Constraints)
	if err != nil {
		var devErr *device.DeviceError
		if c.metrics != nil && errors.As(err, &devErr) {
			c.metrics.RecordDeviceOpenFailure(string(devErr.Code))
		}
		c.logger.Error("Device acquisition failed", slog.String("error", err.Error()))
		return err
	}

	session := &RecordingSession{
		id:        uuid.NewString(),
		mimeType:  dev.MIMEType(),
		startTime: time.Now(),
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	c.session = session
	c.dev = dev
	c.chunkCh = make(chan []byte, 64)
	c.stopFlag = &atomic.Bool{}
	c.cancel = cancel
	c.loopDone = make(chan struct{})

	c.viz = visualizer.New(dev, c.config.Visualizer, c.logger)
	c.viz.Start()

	chunkCh := c.chunkCh
	stopFlag := c.stopFlag
	if err := dev.Start(c.config.ChunkInterval, func(chunk []byte) {
		if stopFlag.Load() {
			// Late-arriving data from a just-closed device is dropped,
			// not appended.
			c.logger.Warn("Dropping late chunk after stop",
				slog.String("session_id", session.id),
				slog.Int("size", len(chunk)),
			)
			if c.metrics != nil {
				c.metrics.RecordChunkDropped()
			}
			return
		}
		select {
		case chunkCh <- chunk:
		default:
			c.logger.Warn("Chunk queue full, dropping chunk",
				slog.String("session_id", session.id),
			)
			if c.metrics != nil {
				c.metrics.RecordChunkDropped()
			}
		}
	}); err != nil {
		cancel()
		c.viz.Stop()
		dev.Close()
		c.session = nil
		c.dev = nil
		c.viz = nil
		return err
	}

	c.state = StateRecording

	go c.runLoop(loopCtx, session, chunkCh, c.loopDone)

	if c.metrics != nil {
		c.metrics.RecordRecordingStarted()
	}

	c.logger.Info("Recording started",
		slog.String("session_id", session.id),
		slog.String("mime_type", session.mimeType),
		slog.Int("sample_rate", dev.SampleRate()),
		slog.Duration("chunk_interval", c.config.ChunkInterval),
	)

	return nil
}

// runLoop is the single writer for the active session: it appends arriving
// chunks and refreshes elapsed time. Elapsed is recomputed from the
// wall-clock delta each tick, not accumulated by increment, so timer drift
// cannot build up.
func (c *Controller) runLoop(ctx context.Context, session *RecordingSession, chunkCh <-chan []byte, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.config.ChunkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case chunk := <-chunkCh:
			session.appendChunk(chunk)
			if c.metrics != nil {
				c.metrics.RecordChunkCollected()
			}
		case <-ticker.C:
			session.setElapsed(time.Since(session.startTime).Seconds())
		}
	}
}

// Stop finalizes the current recording: chunk emission and the visualizer
// feed end synchronously, the device session is closed, and the chunk
// sequence is concatenated into a single blob whose type is the device's
// native capture container.
//
// Calling Stop when not Recording is a logged no-op with no error.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		c.logger.Debug("Stop ignored outside recording state",
			slog.String("state", c.state.String()),
		)
		return nil
	}

	session := c.session

	// Order matters: flag first so chunk callbacks turn into drops, then
	// stop the feeds so nothing runs once Stop returns.
	c.stopFlag.Store(true)
	c.cancel()
	<-c.loopDone
	c.viz.Stop()

	if c.metrics != nil {
		c.metrics.RecordVisualizerFrames(c.viz.FramesEmitted())
	}

	if err := c.dev.Close(); err != nil {
		c.logger.Warn("Error closing device session", slog.String("error", err.Error()))
	}

	// Drain chunks that were queued before the flag went up.
	for {
		select {
		case chunk := <-c.chunkCh:
			session.appendChunk(chunk)
		default:
			session.setElapsed(time.Since(session.startTime).Seconds())
			session.finalize()
			c.state = StateStopped
			c.dev = nil
			c.viz = nil

			if c.metrics != nil {
				c.metrics.RecordRecordingStopped(session.Elapsed(), session.BlobSize())
			}

			c.logger.Info("Recording stopped",
				slog.String("session_id", session.id),
				slog.Float64("elapsed_seconds", session.Elapsed()),
				slog.Int("chunks", session.ChunkCount()),
				slog.Int("blob_bytes", session.BlobSize()),
			)
			return nil
		}
	}
}

// Discard releases all session resources and returns to Idle. Valid only
// from Stopped.
func (c *Controller) Discard() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStopped {
		return &TransitionError{Op: "discard", From: c.state}
	}

	c.logger.Info("Recording discarded",
		slog.String("session_id", c.session.id),
	)

	c.session.release()
	c.session = nil
	c.state = StateIdle

	if c.metrics != nil {
		c.metrics.RecordRecordingDiscarded()
	}

	return nil
}

// Submit packages the finalized blob as a named file artifact. Valid only
// from Stopped; it does not itself transition state. A recording with zero
// chunks still submits, as a zero-byte artifact, and rejecting empty
// recordings is the caller's responsibility.
func (c *Controller) Submit() (*FileArtifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStopped {
		return nil, &TransitionError{Op: "submit", From: c.state}
	}

	artifact := &FileArtifact{
		Name:     fmt.Sprintf("recording-%s.%s", c.session.id, extensionFor(c.session.mimeType)),
		MIMEType: c.session.mimeType,
		Data:     c.session.blobData(),
	}

	c.logger.Info("Recording submitted",
		slog.String("session_id", c.session.id),
		slog.String("filename", artifact.Name),
		slog.Int("size", len(artifact.Data)),
	)

	return artifact, nil
}

// Session returns the active or finished recording session, or nil.
func (c *Controller) Session() *RecordingSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Frames returns the live visualizer feed of the active recording, or nil
// when not recording.
func (c *Controller) Frames() <-chan []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.viz == nil {
		return nil
	}
	return c.viz.Frames()
}

// Info returns a snapshot of the current session for logs and monitoring.
func (c *Controller) Info() SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := SessionInfo{State: c.state.String()}
	if c.session == nil {
		return info
	}

	elapsed := c.session.Elapsed()
	if c.state == StateRecording {
		elapsed = time.Since(c.session.startTime).Seconds()
	}

	info.ID = c.session.id
	info.MIMEType = c.session.mimeType
	info.StartTime = c.session.startTime
	info.ElapsedSeconds = elapsed
	info.ChunkCount = c.session.ChunkCount()
	info.BlobSizeBytes = c.session.BlobSize()
	return info
}

// Close tears the controller down from any state, releasing the device on
// every exit path.
func (c *Controller) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.release()
		c.session = nil
	}
	c.state = StateIdle
	return nil
}

// extensionFor derives a file extension from a capture MIME type.
func extensionFor(mimeType string) string {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	if i := strings.Index(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if base == "" {
		return "bin"
	}
	return base
}
