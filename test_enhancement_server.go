package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type ProcessingStats struct {
	SpeedFactor               float64 `json:"speed_factor"`
	VolumeFactor              float64 `json:"volume_factor"`
	NoiseRemovalApplied       bool    `json:"noise_removal_applied"`
	ClarityEnhancementApplied bool    `json:"clarity_enhancement_applied"`
}

type EnhancementResponse struct {
	FileID           string          `json:"file_id"`
	OriginalFilename string          `json:"original_filename"`
	EnhancedFilename string          `json:"enhanced_filename"`
	ProcessingStats  ProcessingStats `json:"processing_stats"`
	DurationSeconds  float64         `json:"duration_seconds"`
}

// In-memory store of "enhanced" files by id
var enhancedFiles = map[string][]byte{}

func enhanceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	audioData, filename, stats, ok := readSubmission(w, r)
	if !ok {
		return
	}

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	fileID := fmt.Sprintf("file-%d", time.Now().UnixNano())
	enhancedFiles[fileID] = audioData

	response := EnhancementResponse{
		FileID:           fileID,
		OriginalFilename: filename,
		EnhancedFilename: "enhanced_" + filename,
		ProcessingStats:  stats,
		DurationSeconds:  float64(len(audioData)) / 96000.0,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ ENHANCEMENT RESPONSE SENT: file_id=%s (%d bytes)", fileID, len(audioData))
	log.Println("---")
}

func downloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fileID := strings.TrimPrefix(r.URL.Path, "/download-enhanced/")
	data, exists := enhancedFiles[fileID]
	if !exists {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	log.Printf("⬇️  DOWNLOAD: file_id=%s (%d bytes)", fileID, len(data))

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func streamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	audioData, filename, _, ok := readSubmission(w, r)
	if !ok {
		return
	}

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	log.Printf("🔊 STREAMED RESPONSE: %s (%d bytes)", filename, len(audioData))
	log.Println("---")

	// Echo the audio straight back as the "enhanced" result
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(audioData)
}

// readSubmission parses the multipart submission shared by both endpoints
// and logs what arrived.
func readSubmission(w http.ResponseWriter, r *http.Request) ([]byte, string, ProcessingStats, bool) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return nil, "", ProcessingStats{}, false
	}

	speedFactor := r.FormValue("speed_factor")
	volumeFactor := r.FormValue("volume_factor")
	removeNoise := r.FormValue("remove_noise")
	enhanceClarity := r.FormValue("enhance_clarity")

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return nil, "", ProcessingStats{}, false
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return nil, "", ProcessingStats{}, false
	}

	log.Printf("🎤 ENHANCEMENT REQUEST RECEIVED:")
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  🎧 Audio Info:")
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))
	log.Printf("    Content-Type: %s", header.Header.Get("Content-Type"))
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  🎛️  Parameters:")
	log.Printf("    Speed Factor: %s", speedFactor)
	log.Printf("    Volume Factor: %s", volumeFactor)
	log.Printf("    Remove Noise: %s", removeNoise)
	log.Printf("    Enhance Clarity: %s", enhanceClarity)

	stats := ProcessingStats{
		SpeedFactor:               parseFloat64(speedFactor),
		VolumeFactor:              parseFloat64(volumeFactor),
		NoiseRemovalApplied:       removeNoise == "true",
		ClarityEnhancementApplied: enhanceClarity == "true",
	}

	return audioData, header.Filename, stats, true
}

func parseFloat64(s string) float64 {
	var val float64
	fmt.Sscanf(s, "%f", &val)
	return val
}

func main() {
	http.HandleFunc("/enhance-audio/", enhanceHandler)
	http.HandleFunc("/download-enhanced/", downloadHandler)
	http.HandleFunc("/process-audio-stream/", streamHandler)

	port := ":9000"
	log.Printf("🚀 Test Enhancement Server starting on port %s", port)
	log.Printf("📡 Endpoints: http://localhost%s/enhance-audio/, /download-enhanced/{file_id}, /process-audio-stream/", port)
	log.Println("💡 Update your config to use: base_url: http://localhost:9000")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
