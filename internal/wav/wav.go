package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of the canonical PCM WAV header in bytes.
const HeaderSize = 44

// Header represents the header structure of a WAV file
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// DecodeError indicates that a byte blob could not be decoded as a WAV
// container. It is surfaced to the caller of the operation that triggered
// the decode and is never retried.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wav decode: %s", e.Reason)
}

// DecodedAudio holds a decoded mono sample buffer. Samples are 32-bit floats
// in [-1, 1]. DurationSeconds is taken from the container header, not
// recomputed by consumers, so it stays authoritative even if sample-rate
// metadata and buffer length diverge.
type DecodedAudio struct {
	SampleRate      int
	Samples         []float32
	DurationSeconds float64
}

// Encode encodes float32 samples in [-1, 1] into a mono 16-bit PCM WAV file.
// Samples are clamped before conversion; negative values scale by 32768 and
// non-negative values by 32767. The asymmetric full-scale mapping matches the
// recordings already produced by deployed clients, so changing it would make
// re-encoded files differ byte-for-byte from their originals.
//
// Encode is total: empty input yields a valid 44-byte header-only file.
func Encode(samples []float32, sampleRate int) []byte {
	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(samples) * 2) // 2 bytes per sample

	header := Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(samples)*2))

	// binary.Write into a bytes.Buffer cannot fail for fixed-size data
	binary.Write(buf, binary.LittleEndian, header)

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = quantize(s)
	}
	binary.Write(buf, binary.LittleEndian, pcm)

	return buf.Bytes()
}

// quantize clamps a float sample to [-1, 1] and converts it to int16.
func quantize(s float32) int16 {
	if s < -1 {
		s = -1
	}
	if s > 1 {
		s = 1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// Decode decodes WAV data back to a float32 sample buffer. Only mono 16-bit
// PCM containers are accepted. Integer samples map to floats by dividing by
// 32768, so a full-scale negative sample decodes to exactly -1.0.
func Decode(data []byte) (*DecodedAudio, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	numSamples := int(header.Subchunk2Size) / 2 // 2 bytes per sample
	if HeaderSize+numSamples*2 > len(data) {
		return nil, &DecodeError{Reason: fmt.Sprintf(
			"data chunk claims %d samples but only %d bytes follow the header",
			numSamples, len(data)-HeaderSize)}
	}

	pcm := make([]int16, numSamples)
	if err := binary.Read(bytes.NewReader(data[HeaderSize:]), binary.LittleEndian, pcm); err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("failed to read audio samples: %v", err)}
	}

	samples := make([]float32, numSamples)
	for i, s := range pcm {
		samples[i] = float32(s) / 32768.0
	}

	return &DecodedAudio{
		SampleRate:      int(header.SampleRate),
		Samples:         samples,
		DurationSeconds: float64(numSamples) / float64(header.SampleRate),
	}, nil
}

// parseHeader reads and validates the 44-byte header.
func parseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, &DecodeError{Reason: fmt.Sprintf(
			"data too short: need at least %d bytes, got %d", HeaderSize, len(data))}
	}

	var header Header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("failed to read header: %v", err)}
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, &DecodeError{Reason: "missing RIFF header"}
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, &DecodeError{Reason: "missing WAVE format"}
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, &DecodeError{Reason: "missing fmt chunk"}
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, &DecodeError{Reason: "missing data chunk"}
	}
	if header.AudioFormat != 1 {
		return nil, &DecodeError{Reason: fmt.Sprintf(
			"unsupported audio format: %d (only PCM is supported)", header.AudioFormat)}
	}
	if header.BitsPerSample != 16 {
		return nil, &DecodeError{Reason: fmt.Sprintf(
			"unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)}
	}
	if header.NumChannels != 1 {
		return nil, &DecodeError{Reason: fmt.Sprintf(
			"unsupported channel count: %d (only mono is supported)", header.NumChannels)}
	}
	if header.SampleRate == 0 {
		return nil, &DecodeError{Reason: "invalid sample rate: 0"}
	}

	return &header, nil
}

// Validate checks the WAV container format without decoding the audio data.
func Validate(data []byte) error {
	_, err := parseHeader(data)
	return err
}

// Duration calculates the duration of a WAV file in seconds.
func Duration(data []byte) (float64, error) {
	header, err := parseHeader(data)
	if err != nil {
		return 0, err
	}

	numSamples := header.Subchunk2Size / 2 // 2 bytes per sample
	return float64(numSamples) / float64(header.SampleRate), nil
}

// Info describes a WAV file without its sample data.
type Info struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

// GetInfo extracts metadata from a WAV file.
func GetInfo(data []byte) (*Info, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	numSamples := header.Subchunk2Size / (uint32(header.BitsPerSample) / 8)

	return &Info{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      float64(numSamples) / float64(header.SampleRate),
		DataSize:      header.Subchunk2Size,
		NumSamples:    numSamples,
	}, nil
}
