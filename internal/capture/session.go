package capture

import (
	"sync"
	"time"
)

// RecordingSession holds the ordered chunk sequence and timing for one
// recording. It is created on Start, mutated only by the controller, and
// destroyed on Discard or replaced by the next recording.
type RecordingSession struct {
	id        string
	mimeType  string
	startTime time.Time

	mu      sync.RWMutex
	chunks  [][]byte
	blob    []byte
	elapsed float64

	released bool
}

// SessionInfo is a read-only snapshot of a recording session for logs and
// the monitoring API.
type SessionInfo struct {
	ID             string    `json:"id"`
	State          string    `json:"state"`
	MIMEType       string    `json:"mime_type"`
	StartTime      time.Time `json:"start_time"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	ChunkCount     int       `json:"chunk_count"`
	BlobSizeBytes  int       `json:"blob_size_bytes"`
}

// FileArtifact is a named file packaged from a finalized recording, ready
// for playback or upload.
type FileArtifact struct {
	Name     string
	MIMEType string
	Data     []byte
}

// appendChunk appends one encoded chunk. Chunks are order-significant and
// never mutated after append.
func (s *RecordingSession) appendChunk(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
}

// setElapsed refreshes the elapsed-seconds reading.
func (s *RecordingSession) setElapsed(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed = seconds
}

// Elapsed returns the last elapsed-seconds reading.
func (s *RecordingSession) Elapsed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elapsed
}

// ChunkCount returns the number of chunks appended so far.
func (s *RecordingSession) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// BlobSize returns the size of the finalized blob in bytes.
func (s *RecordingSession) BlobSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blob)
}

// finalize concatenates the chunk sequence into a single blob typed with
// the session's native capture container. Zero chunks yield an empty blob,
// which is not an error at this layer.
func (s *RecordingSession) finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, chunk := range s.chunks {
		total += len(chunk)
	}

	blob := make([]byte, 0, total)
	for _, chunk := range s.chunks {
		blob = append(blob, chunk...)
	}
	s.blob = blob
}

// release drops the chunk sequence and blob. After release the session's
// data must never be read again.
func (s *RecordingSession) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.blob = nil
	s.released = true
}

// Released reports whether the session's resources have been dropped.
func (s *RecordingSession) Released() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.released
}

// blobData returns the finalized blob.
func (s *RecordingSession) blobData() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blob
}
