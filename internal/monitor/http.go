package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AdityaJethliya/hackcarpathia/internal/capture"
	"github.com/AdityaJethliya/hackcarpathia/internal/config"
	"github.com/AdityaJethliya/hackcarpathia/internal/enhance"
	"github.com/AdityaJethliya/hackcarpathia/internal/metrics"
)

// Server provides HTTP endpoints for monitoring the capture tool
type Server struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	controller *capture.Controller
	client     *enhance.Client
	metrics    *metrics.Metrics

	startTime time.Time
}

// NewServer creates a new monitoring HTTP server
func NewServer(cfg config.MetricsConfig, logger *slog.Logger,
	appConfig *config.Config, controller *capture.Controller, client *enhance.Client, m *metrics.Metrics) *Server {

	s := &Server{
		logger:     logger,
		config:     appConfig,
		controller: controller,
		client:     client,
		metrics:    m,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))

	// Current recording session
	mux.HandleFunc("/session", s.withMetrics("/session", s.handleSession))

	// Configuration endpoint
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the monitoring server
func (s *Server) Start() error {
	s.logger.Info("Starting monitoring HTTP server",
		slog.String("address", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Monitoring server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the monitoring server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping monitoring HTTP server...")

	return s.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.startTime)
	clientStats := s.client.GetStats()
	sessionInfo := s.controller.Info()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "hackcarpathia-capture",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"capture": map[string]interface{}{
				"state":       sessionInfo.State,
				"session_id":  sessionInfo.ID,
				"chunk_count": sessionInfo.ChunkCount,
			},
			"enhance": map[string]interface{}{
				"total_requests":  clientStats.TotalRequests,
				"success_rate":    clientStats.SuccessRate,
				"active_requests": clientStats.ActiveRequests,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleSession implements the /session endpoint
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.controller.Info())
}

// handleConfig implements the /config endpoint
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"device": map[string]interface{}{
			"sample_rate":         s.config.Device.SampleRate,
			"echo_cancellation":   s.config.Device.EchoCancellation,
			"noise_suppression":   s.config.Device.NoiseSuppression,
			"auto_gain_control":   s.config.Device.AutoGainControl,
			"preferred_mime_type": s.config.Device.PreferredMIMEType,
			"fallback_mime_type":  s.config.Device.FallbackMIMEType,
		},
		"capture": map[string]interface{}{
			"chunk_interval_ms": s.config.Capture.ChunkIntervalMs,
			"max_duration":      s.config.Capture.MaxDuration,
		},
		"visualizer": map[string]interface{}{
			"tick_interval_ms": s.config.Visualizer.TickIntervalMs,
		},
		"enhance": map[string]interface{}{
			"base_url":       s.config.Enhance.BaseURL,
			"timeout":        s.config.Enhance.Timeout,
			"max_concurrent": s.config.Enhance.MaxConcurrent,
			"speed_factor":   s.config.Enhance.SpeedFactor,
			"volume_factor":  s.config.Enhance.VolumeFactor,
			"streamed":       s.config.Enhance.Streamed,
			// Note: API key is intentionally omitted for security
		},
		"logging": map[string]interface{}{
			"level":  s.config.Logging.Level,
			"format": s.config.Logging.Format,
			"output": s.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"session":   s.controller.Info(),
		"enhance":   s.client.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "HackCarpathia Audio Capture",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /session": "Current recording session",
			"GET /config":  "Tool configuration",
			"GET /stats":   "Capture and enhancement statistics",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
