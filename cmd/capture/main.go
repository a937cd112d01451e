package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/AdityaJethliya/hackcarpathia/internal/analysis"
	"github.com/AdityaJethliya/hackcarpathia/internal/capture"
	"github.com/AdityaJethliya/hackcarpathia/internal/config"
	"github.com/AdityaJethliya/hackcarpathia/internal/device"
	"github.com/AdityaJethliya/hackcarpathia/internal/enhance"
	"github.com/AdityaJethliya/hackcarpathia/internal/enhance/progress"
	"github.com/AdityaJethliya/hackcarpathia/internal/metrics"
	"github.com/AdityaJethliya/hackcarpathia/internal/monitor"
	"github.com/AdityaJethliya/hackcarpathia/internal/visualizer"
	"github.com/AdityaJethliya/hackcarpathia/internal/wav"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "hackcarpathia-capture"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to .env file with deployment secrets")
	outputDir := flag.String("output", ".", "Directory for captured and enhanced files")
	duration := flag.Duration("duration", 0, "Recording duration (0 = record until interrupted)")
	submit := flag.Bool("enhance", false, "Submit the recording for remote enhancement")
	flag.Parse()

	// Load .env before the config so env overrides are visible
	if err := config.LoadEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Capture tool starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Device.SampleRate),
		slog.String("preferred_mime_type", cfg.Device.PreferredMIMEType),
		slog.Int("chunk_interval_ms", cfg.Capture.ChunkIntervalMs),
		slog.Int("visualizer_tick_ms", cfg.Visualizer.TickIntervalMs),
		slog.String("enhance_base_url", cfg.Enhance.BaseURL),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Capture constraints from configuration
	constraints := device.Constraints{
		EchoCancellation:  cfg.Device.EchoCancellation,
		NoiseSuppression:  cfg.Device.NoiseSuppression,
		AutoGainControl:   cfg.Device.AutoGainControl,
		SampleRate:        cfg.Device.SampleRate,
		PreferredMIMEType: cfg.Device.PreferredMIMEType,
		FallbackMIMEType:  cfg.Device.FallbackMIMEType,
	}

	driver := &device.SyntheticDriver{}

	controller := capture.NewController(driver, capture.Config{
		ChunkInterval: cfg.Capture.GetChunkInterval(),
		Constraints:   constraints,
		Visualizer:    visualizer.Config{TickInterval: cfg.Visualizer.GetTickInterval()},
	}, logger, appMetrics)
	logger.Info("Capture controller initialized")

	// Enhancement client
	client, err := enhance.NewClient(enhance.Config{
		BaseURL:       cfg.Enhance.BaseURL,
		APIKey:        cfg.Enhance.APIKey,
		Timeout:       cfg.Enhance.GetTimeoutDuration(),
		MaxConcurrent: cfg.Enhance.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create enhancement client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Monitoring HTTP server (if enabled)
	var monitorServer *monitor.Server
	if cfg.Metrics.Enabled {
		monitorServer = monitor.NewServer(cfg.Metrics, logger, cfg, controller, client, appMetrics)
		if err := monitorServer.Start(); err != nil {
			logger.Error("Failed to start monitoring server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Start recording
	if err := controller.Start(ctx); err != nil {
		logger.Error("Failed to start recording", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Render a live level meter from the visualizer feed until the feed
	// closes on Stop.
	meterDone := make(chan struct{})
	go func() {
		defer close(meterDone)
		renderMeter(controller.Frames(), os.Stderr)
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	recordingCap := *duration
	if recordingCap == 0 {
		recordingCap = cfg.Capture.GetMaxDuration()
	}

	var timeout <-chan time.Time
	if recordingCap > 0 {
		timeout = time.After(recordingCap)
		logger.Info("Recording", slog.Duration("duration", recordingCap))
	} else {
		logger.Info("Recording until interrupted...")
	}

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-timeout:
		logger.Info("Recording duration reached")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	if err := controller.Stop(); err != nil {
		logger.Error("Failed to stop recording", slog.String("error", err.Error()))
		os.Exit(1)
	}
	<-meterDone

	artifact, err := controller.Submit()
	if err != nil {
		logger.Error("Failed to package recording", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if len(artifact.Data) == 0 {
		logger.Warn("Recording is empty, nothing to save")
	} else {
		outPath := filepath.Join(*outputDir, artifact.Name)
		if err := os.WriteFile(outPath, artifact.Data, 0644); err != nil {
			logger.Error("Failed to write recording", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Recording saved",
			slog.String("path", outPath),
			slog.Int("size", len(artifact.Data)),
		)

		// The synthetic driver captures raw 16-bit PCM; package it as a
		// canonical WAV so the take can be analyzed locally and uploaded
		// as a plain recording.
		wavFile := packageWAV(artifact, cfg.Device.SampleRate)
		wavPath := filepath.Join(*outputDir, wavFile.Name)
		if err := os.WriteFile(wavPath, wavFile.Data, 0644); err != nil {
			logger.Error("Failed to write WAV encoding", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("WAV encoding saved",
			slog.String("path", wavPath),
			slog.Int("size", len(wavFile.Data)),
		)

		reportStatistics(logger, wavFile)

		if *submit {
			runEnhancement(ctx, cfg, logger, appMetrics, client, wavFile, *outputDir)
		}
	}

	// Graceful teardown
	if monitorServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := monitorServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping monitoring server", slog.String("error", err.Error()))
		}
	}

	if err := controller.Close(); err != nil {
		logger.Error("Error closing controller", slog.String("error", err.Error()))
	}

	if err := client.Close(); err != nil {
		logger.Error("Error closing enhancement client", slog.String("error", err.Error()))
	}

	stats := client.GetStats()
	logger.Info("Final statistics",
		slog.Uint64("enhance_requests", stats.TotalRequests),
		slog.Uint64("enhance_successes", stats.SuccessRequests),
		slog.Uint64("enhance_failures", stats.FailedRequests),
		slog.Float64("success_rate", stats.SuccessRate),
	)

	logger.Info("Capture tool stopped")
}

// renderMeter draws a live input level line from the visualizer frame feed
// until the feed closes.
func renderMeter(frames <-chan []float64, out io.Writer) {
	for frame := range frames {
		fmt.Fprintf(out, "\r%s", meterLine(frame))
	}
	fmt.Fprintln(out)
}

const meterWidth = 32

// meterLine formats one visualizer frame as a level bar.
func meterLine(frame []float64) string {
	level := 0.0
	for _, v := range frame {
		level += v
	}
	if len(frame) > 0 {
		level /= float64(len(frame))
	}

	filled := int(level * meterWidth)
	if filled > meterWidth {
		filled = meterWidth
	}

	var bar [meterWidth]byte
	for i := range bar {
		if i < filled {
			bar[i] = '#'
		} else {
			bar[i] = '-'
		}
	}
	return fmt.Sprintf("[%s] %3.0f%%", bar[:], level*100)
}

// pcmSamples converts raw 16-bit little-endian PCM into float samples, the
// inverse of the asymmetric full-scale mapping the WAV encoder applies.
func pcmSamples(data []byte) []float32 {
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		if v < 0 {
			samples[i] = float32(v) / 32768
		} else {
			samples[i] = float32(v) / 32767
		}
	}
	return samples
}

// packageWAV wraps a raw PCM capture in a canonical WAV container.
func packageWAV(artifact *capture.FileArtifact, sampleRate int) *capture.FileArtifact {
	name := strings.TrimSuffix(artifact.Name, filepath.Ext(artifact.Name)) + ".wav"
	return &capture.FileArtifact{
		Name:     name,
		MIMEType: "audio/wav",
		Data:     wav.Encode(pcmSamples(artifact.Data), sampleRate),
	}
}

// reportStatistics decodes the recording and logs duration, volume, and
// silence figures plus a waveform sketch. Only WAV payloads can be decoded
// locally; compressed containers are skipped.
func reportStatistics(logger *slog.Logger, artifact *capture.FileArtifact) {
	decoded, err := wav.Decode(artifact.Data)
	if err != nil {
		logger.Debug("Recording is not locally decodable, skipping analysis",
			slog.String("mime_type", artifact.MIMEType),
		)
		return
	}

	stats := analysis.Analyze(decoded)
	logger.Info("Recording statistics",
		slog.Float64("duration_seconds", stats.DurationSeconds),
		slog.Float64("volume_percent", stats.VolumePercent),
		slog.Float64("silence_percent", stats.SilencePercent),
		slog.Float64("peak_amplitude", float64(stats.PeakAmplitude)),
	)

	envelope := analysis.SampleEnvelope(decoded, 64)
	logger.Info("Recording waveform", slog.String("envelope", waveformLine(envelope)))
}

// waveformLine renders a min/max envelope as a one-line sketch, one glyph
// per bucket by peak amplitude.
func waveformLine(envelope analysis.Envelope) string {
	glyphs := []byte(" .:-=+*#")

	line := make([]byte, len(envelope))
	for i, bucket := range envelope {
		if bucket.Empty {
			line[i] = ' '
			continue
		}

		peak := bucket.Max
		if -bucket.Min > peak {
			peak = -bucket.Min
		}

		idx := int(peak * float32(len(glyphs)))
		if idx >= len(glyphs) {
			idx = len(glyphs) - 1
		}
		if idx < 0 {
			idx = 0
		}
		line[i] = glyphs[idx]
	}
	return string(line)
}

// runEnhancement submits the recording through the upload pipeline and
// writes the enhanced audio next to the original.
func runEnhancement(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	appMetrics *metrics.Metrics, client *enhance.Client, artifact *capture.FileArtifact, outputDir string) {

	params := enhance.Params{
		SpeedFactor:    cfg.Enhance.SpeedFactor,
		VolumeFactor:   cfg.Enhance.VolumeFactor,
		RemoveNoise:    cfg.Enhance.RemoveNoise,
		EnhanceClarity: cfg.Enhance.EnhanceClarity,
	}.Clamped()

	mode := enhance.Buffered
	if cfg.Enhance.Streamed {
		mode = enhance.Streamed
	}

	pipeline := enhance.NewPipeline(client, progress.Config{}, logger, appMetrics)

	// Log progress while the submission is in flight
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				logger.Info("Enhancement progress", slog.Float64("percent", pipeline.Progress()))
			}
		}
	}()

	outcome, err := pipeline.Submit(ctx, artifact, params, mode)
	close(done)
	if err != nil {
		logger.Error("Enhancement failed", slog.String("error", err.Error()))
		return
	}

	name := outcome.Result.EnhancedFilename
	if name == "" {
		name = "enhanced_" + artifact.Name
	}

	outPath := filepath.Join(outputDir, name)
	if err := os.WriteFile(outPath, outcome.Audio, 0644); err != nil {
		logger.Error("Failed to write enhanced audio", slog.String("error", err.Error()))
		return
	}

	logger.Info("Enhanced audio saved",
		slog.String("path", outPath),
		slog.Int("size", len(outcome.Audio)),
	)
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
