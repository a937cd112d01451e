package enhance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AdityaJethliya/hackcarpathia/internal/capture"
	"github.com/AdityaJethliya/hackcarpathia/internal/enhance/progress"
	"github.com/AdityaJethliya/hackcarpathia/internal/metrics"
)

// Mode selects how the enhanced audio comes back from the service.
type Mode int

const (
	// Buffered submits the file, receives a result descriptor, and fetches
	// the enhanced audio separately by file id.
	Buffered Mode = iota

	// Streamed receives the enhanced audio directly in the response body.
	Streamed
)

func (m Mode) String() string {
	switch m {
	case Buffered:
		return "buffered"
	case Streamed:
		return "streamed"
	default:
		return "unknown"
	}
}

// Outcome bundles what a submission produced: the result descriptor and the
// enhanced audio bytes.
type Outcome struct {
	Result *Result
	Audio  []byte
}

// Pipeline drives a submission end to end: it starts synthetic progress,
// performs the remote call in the selected mode, and resolves or clears
// progress depending on the outcome.
type Pipeline struct {
	client   *Client
	progress progress.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	tracker *progress.Tracker
}

// NewPipeline creates a pipeline over an existing client. metrics may be nil.
func NewPipeline(client *Client, progressConfig progress.Config, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		client:   client,
		progress: progressConfig,
		logger:   logger,
		metrics:  m,
	}
}

// Submit runs one enhancement submission. Any network or decode failure
// aborts the pipeline, clears progress, and surfaces a single error; no
// partial retry is attempted here.
func (p *Pipeline) Submit(ctx context.Context, artifact *capture.FileArtifact, params Params, mode Mode) (*Outcome, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tracker := progress.NewTracker(p.progress)
	p.mu.Lock()
	p.tracker = tracker
	p.mu.Unlock()
	tracker.Start(ctx)

	startTime := time.Now()
	if p.metrics != nil {
		p.metrics.RecordEnhanceRequest(len(artifact.Data))
	}

	p.logger.Info("Submitting recording for enhancement",
		slog.String("filename", artifact.Name),
		slog.String("mode", mode.String()),
		slog.Int("size", len(artifact.Data)),
		slog.Float64("speed_factor", params.SpeedFactor),
		slog.Float64("volume_factor", params.VolumeFactor),
	)

	outcome, err := p.run(ctx, artifact, params, mode)
	if err != nil {
		tracker.Clear()
		if p.metrics != nil {
			p.metrics.RecordEnhanceFailure(time.Since(startTime).Seconds())
		}
		p.logger.Error("Enhancement failed",
			slog.String("filename", artifact.Name),
			slog.String("mode", mode.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	tracker.Complete()
	if p.metrics != nil {
		p.metrics.RecordEnhanceSuccess(time.Since(startTime).Seconds())
	}

	p.logger.Info("Enhancement complete",
		slog.String("filename", artifact.Name),
		slog.String("file_id", outcome.Result.FileID),
		slog.String("enhanced_filename", outcome.Result.EnhancedFilename),
		slog.Float64("duration_seconds", outcome.Result.DurationSeconds),
		slog.Int("audio_bytes", len(outcome.Audio)),
	)

	return outcome, nil
}

func (p *Pipeline) run(ctx context.Context, artifact *capture.FileArtifact, params Params, mode Mode) (*Outcome, error) {
	switch mode {
	case Streamed:
		audio, result, err := p.client.EnhanceStream(ctx, artifact, params)
		if err != nil {
			return nil, err
		}
		return &Outcome{Result: result, Audio: audio}, nil

	default:
		result, err := p.client.Enhance(ctx, artifact, params)
		if err != nil {
			return nil, err
		}

		audio, err := p.client.Download(ctx, result.FileID)
		if err != nil {
			return nil, err
		}
		return &Outcome{Result: result, Audio: audio}, nil
	}
}

// Progress returns the current synthetic progress value, or 0 when no
// submission has started.
func (p *Pipeline) Progress() float64 {
	p.mu.Lock()
	tracker := p.tracker
	p.mu.Unlock()

	if tracker == nil {
		return 0
	}
	return tracker.Value()
}

// ProgressUpdates returns the progress feed of the most recent submission,
// or nil when none has started.
func (p *Pipeline) ProgressUpdates() <-chan float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tracker == nil {
		return nil
	}
	return p.tracker.Updates()
}
