package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdityaJethliya/hackcarpathia/internal/capture"
)

func testArtifact() *capture.FileArtifact {
	return &capture.FileArtifact{
		Name:     "recording-test.webm",
		MIMEType: "audio/webm;codecs=opus",
		Data:     []byte("fake audio payload"),
	}
}

func TestParamsValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults valid", DefaultParams(), false},
		{"min bounds", Params{SpeedFactor: 0.5, VolumeFactor: 1.0}, false},
		{"max bounds", Params{SpeedFactor: 1.0, VolumeFactor: 2.0}, false},
		{"speed too low", Params{SpeedFactor: 0.4, VolumeFactor: 1.0}, true},
		{"speed too high", Params{SpeedFactor: 1.1, VolumeFactor: 1.0}, true},
		{"volume too low", Params{SpeedFactor: 1.0, VolumeFactor: 0.9}, true},
		{"volume too high", Params{SpeedFactor: 1.0, VolumeFactor: 2.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParamsClamped(t *testing.T) {
	p := Params{SpeedFactor: 0.1, VolumeFactor: 5.0}.Clamped()
	if p.SpeedFactor != MinSpeedFactor {
		t.Errorf("Expected speed clamped to %.1f, got %.2f", MinSpeedFactor, p.SpeedFactor)
	}
	if p.VolumeFactor != MaxVolumeFactor {
		t.Errorf("Expected volume clamped to %.1f, got %.2f", MaxVolumeFactor, p.VolumeFactor)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Clamped params must validate: %v", err)
	}
}

func TestEnhanceSendsExpectedForm(t *testing.T) {
	var gotFilename string
	var gotFields map[string]string
	var gotFileData []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/enhance-audio/" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("Bad multipart form: %v", err)
		}

		file, header, err := r.FormFile("audio_file")
		if err != nil {
			t.Fatalf("Missing audio_file part: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		gotFileData, _ = io.ReadAll(file)

		gotFields = map[string]string{}
		for _, key := range []string{"speed_factor", "volume_factor", "remove_noise", "enhance_clarity"} {
			gotFields[key] = r.FormValue(key)
		}

		json.NewEncoder(w).Encode(Result{
			FileID:           "abc-123",
			OriginalFilename: header.Filename,
			EnhancedFilename: "enhanced_" + header.Filename,
			ProcessingStats: ProcessingStats{
				SpeedFactor:         0.8,
				VolumeFactor:        1.5,
				NoiseRemovalApplied: true,
			},
			DurationSeconds: 2.5,
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	params := Params{SpeedFactor: 0.8, VolumeFactor: 1.5, RemoveNoise: true, EnhanceClarity: false}
	result, err := client.Enhance(context.Background(), testArtifact(), params)
	if err != nil {
		t.Fatalf("Enhance failed: %v", err)
	}

	if gotFilename != "recording-test.webm" {
		t.Errorf("Expected uploaded filename preserved, got %s", gotFilename)
	}
	if !bytes.Equal(gotFileData, []byte("fake audio payload")) {
		t.Error("Uploaded file bytes do not match the artifact")
	}
	if gotFields["speed_factor"] != "0.80" || gotFields["volume_factor"] != "1.50" {
		t.Errorf("Factor fields wrong: %v", gotFields)
	}
	if gotFields["remove_noise"] != "true" || gotFields["enhance_clarity"] != "false" {
		t.Errorf("Toggle fields wrong: %v", gotFields)
	}

	if result.FileID != "abc-123" {
		t.Errorf("Expected file_id abc-123, got %s", result.FileID)
	}
	if result.DurationSeconds != 2.5 {
		t.Errorf("Expected duration 2.5, got %f", result.DurationSeconds)
	}
	if !result.ProcessingStats.NoiseRemovalApplied {
		t.Error("Expected noise removal flag parsed from processing_stats")
	}
}

func TestDownloadByFileID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download-enhanced/abc-123" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("enhanced audio bytes"))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	data, err := client.Download(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if !bytes.Equal(data, []byte("enhanced audio bytes")) {
		t.Error("Downloaded bytes do not match")
	}

	if _, err := client.Download(context.Background(), "missing"); err == nil {
		t.Error("Expected error for unknown file id")
	}
}

func TestEnhanceStreamReturnsAudioDirectly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process-audio-stream/" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte("streamed enhanced audio"))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	audio, result, err := client.EnhanceStream(context.Background(), testArtifact(), DefaultParams())
	if err != nil {
		t.Fatalf("EnhanceStream failed: %v", err)
	}

	if !bytes.Equal(audio, []byte("streamed enhanced audio")) {
		t.Error("Streamed audio bytes do not match")
	}

	// The server reports no duration in streamed mode, so the synthesized
	// result keeps 0. That asymmetry is intentional.
	if result.DurationSeconds != 0 {
		t.Errorf("Expected duration 0 in streamed mode, got %f", result.DurationSeconds)
	}
	if result.OriginalFilename != "recording-test.webm" {
		t.Errorf("Expected original filename carried over, got %s", result.OriginalFilename)
	}
	if result.EnhancedFilename != "enhanced_recording-test.webm" {
		t.Errorf("Unexpected enhanced filename %s", result.EnhancedFilename)
	}
}

func TestNetworkErrorSurfaced(t *testing.T) {
	// Point at a server that is already gone
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: url})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Enhance(context.Background(), testArtifact(), DefaultParams())
	if err == nil {
		t.Fatal("Expected network error")
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected *NetworkError, got %T: %v", err, err)
	}
	if netErr.Op != "enhance" {
		t.Errorf("Expected op enhance, got %s", netErr.Op)
	}
}

func TestServerErrorNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Enhance(context.Background(), testArtifact(), DefaultParams()); err == nil {
		t.Fatal("Expected HTTP error surfaced")
	}
	if attempts != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d retries happened", attempts)
	}

	stats := client.GetStats()
	if stats.FailedRequests != 1 || stats.TotalRequests != 1 {
		t.Errorf("Stats wrong after failure: %+v", stats)
	}
}

func TestInvalidParamsRejectedBeforeRequest(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	bad := Params{SpeedFactor: 2.0, VolumeFactor: 1.0}
	if _, err := client.Enhance(context.Background(), testArtifact(), bad); err == nil {
		t.Error("Expected validation error")
	}
	if requests != 0 {
		t.Errorf("Request reached the server despite invalid params")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("Expected error for empty base URL")
	}
}
