package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/AdityaJethliya/hackcarpathia/internal/capture"
)

// Client is the HTTP client for the enhancement API.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Rate limiting semaphore

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains enhancement client configuration.
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxConcurrent int
}

// Result is the descriptor returned by a buffered enhancement call. In
// streamed mode it is synthesized locally and DurationSeconds is always 0,
// since the server reports no duration there.
type Result struct {
	FileID           string          `json:"file_id"`
	OriginalFilename string          `json:"original_filename"`
	EnhancedFilename string          `json:"enhanced_filename"`
	ProcessingStats  ProcessingStats `json:"processing_stats"`
	DurationSeconds  float64         `json:"duration_seconds"`
}

// ProcessingStats mirrors the parameters the server actually applied.
type ProcessingStats struct {
	SpeedFactor               float64 `json:"speed_factor"`
	VolumeFactor              float64 `json:"volume_factor"`
	NoiseRemovalApplied       bool    `json:"noise_removal_applied"`
	ClarityEnhancementApplied bool    `json:"clarity_enhancement_applied"`
}

// NetworkError wraps a failure at the network boundary.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ClientStats represents client statistics.
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a new enhancement HTTP client.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Enhance submits the artifact for buffered enhancement and returns the
// result descriptor. The enhanced audio is fetched separately via Download.
// Failures are surfaced to the caller without retrying.
func (c *Client) Enhance(ctx context.Context, artifact *capture.FileArtifact, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	body, contentType, err := createMultipartRequest(artifact, params)
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	respBody, err := c.post(ctx, "/enhance-audio/", body, contentType)
	if err != nil {
		c.incrementFailedRequests()
		return nil, err
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))

	return &result, nil
}

// EnhanceStream submits the artifact to the streaming endpoint, which
// returns the enhanced audio directly in the response body. The result
// descriptor is synthesized locally; the server reports no duration in this
// mode, so DurationSeconds stays 0.
func (c *Client) EnhanceStream(ctx context.Context, artifact *capture.FileArtifact, params Params) ([]byte, *Result, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	body, contentType, err := createMultipartRequest(artifact, params)
	if err != nil {
		c.incrementFailedRequests()
		return nil, nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	audio, err := c.post(ctx, "/process-audio-stream/", body, contentType)
	if err != nil {
		c.incrementFailedRequests()
		return nil, nil, err
	}

	result := &Result{
		OriginalFilename: artifact.Name,
		EnhancedFilename: "enhanced_" + artifact.Name,
		ProcessingStats: ProcessingStats{
			SpeedFactor:               params.SpeedFactor,
			VolumeFactor:              params.VolumeFactor,
			NoiseRemovalApplied:       params.RemoveNoise,
			ClarityEnhancementApplied: params.EnhanceClarity,
		},
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))

	return audio, result, nil
}

// Download fetches the enhanced audio for a buffered result by file id.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, fmt.Errorf("file ID cannot be empty")
	}

	endpoint := c.config.BaseURL + "/download-enhanced/" + url.PathEscape(fileID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	c.setCommonHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "download", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// post performs a single multipart POST and returns the raw response body.
func (c *Client) post(ctx context.Context, path string, body io.Reader, contentType string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	c.setCommonHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Op: "enhance", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "enhance", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "HackCarpathia-Capture/1.0")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}

// createMultipartRequest builds the multipart/form-data body shared by both
// submission endpoints.
func createMultipartRequest(artifact *capture.FileArtifact, params Params) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("audio_file", artifact.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(artifact.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"speed_factor":    strconv.FormatFloat(params.SpeedFactor, 'f', 2, 64),
		"volume_factor":   strconv.FormatFloat(params.VolumeFactor, 'f', 2, 64),
		"remove_noise":    strconv.FormatBool(params.RemoveNoise),
		"enhance_clarity": strconv.FormatBool(params.EnhanceClarity),
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics.
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}

// Close waits for all active requests to complete.
func (c *Client) Close() error {
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}
	return nil
}
