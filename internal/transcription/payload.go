package transcription

import (
	"bytes"
	"encoding/base64"
	"errors"
)

// EncodeChunkSize is the number of source bytes fed to the encoder per write.
const EncodeChunkSize = 8 * 1024

var (
	ErrNoAudioSource    = errors.New("transcription: no audio source")
	ErrAmbiguousPayload = errors.New("transcription: payload must carry exactly one audio source")
)

// Variant names which audio source a payload carries.
type Variant string

const (
	VariantStoragePath Variant = "storage_path"
	VariantInline      Variant = "inline"
	VariantChunks      Variant = "chunks"
)

// Payload is the request body for the transcription function. It is built right
// before the call and never stored.
type Payload struct {
	RecordingID  string `json:"recording_id"`
	UserID       string `json:"user_id"`
	CustomerName string `json:"customer_name,omitempty"`

	StoragePath      string `json:"storage_path,omitempty"`
	AudioBase64      string `json:"audio_base64,omitempty"`
	ChunkRecordingID string `json:"chunk_recording_id,omitempty"`

	// EncodeIterations is how many encoder writes produced AudioBase64.
	EncodeIterations int `json:"-"`
}

// Source lists what the caller has on hand. BuildPayload picks one of them.
type Source struct {
	RecordingID  string
	UserID       string
	CustomerName string

	StoragePath string
	Audio       []byte
	// Chunked marks the chunked-recording path, where the function assembles
	// the audio from the chunk set itself.
	Chunked bool
}

// BuildPayload selects the audio source in order of preference: a stored file,
// then the in-memory blob, then the chunk set of the recording.
func BuildPayload(src Source) (Payload, error) {
	p := Payload{
		RecordingID:  src.RecordingID,
		UserID:       src.UserID,
		CustomerName: src.CustomerName,
	}
	switch {
	case src.StoragePath != "":
		p.StoragePath = src.StoragePath
	case len(src.Audio) > 0:
		p.AudioBase64, p.EncodeIterations = EncodeChunked(src.Audio, EncodeChunkSize)
	case src.Chunked && src.RecordingID != "":
		p.ChunkRecordingID = src.RecordingID
	default:
		return Payload{}, ErrNoAudioSource
	}
	return p, nil
}

// Variant reports the populated source, or "" when the payload is invalid.
func (p Payload) Variant() Variant {
	var v Variant
	n := 0
	if p.StoragePath != "" {
		v, n = VariantStoragePath, n+1
	}
	if p.AudioBase64 != "" {
		v, n = VariantInline, n+1
	}
	if p.ChunkRecordingID != "" {
		v, n = VariantChunks, n+1
	}
	if n != 1 {
		return ""
	}
	return v
}

func (p Payload) Validate() error {
	if p.RecordingID == "" {
		return errors.New("transcription: recording id is required")
	}
	if p.StoragePath == "" && p.AudioBase64 == "" && p.ChunkRecordingID == "" {
		return ErrNoAudioSource
	}
	if p.Variant() == "" {
		return ErrAmbiguousPayload
	}
	return nil
}

// EncodeChunked base64-encodes blob by streaming it through the encoder
// chunkSize bytes at a time. The output equals StdEncoding of the whole blob.
func EncodeChunked(blob []byte, chunkSize int) (string, int) {
	if chunkSize <= 0 {
		chunkSize = EncodeChunkSize
	}
	var out bytes.Buffer
	out.Grow(base64.StdEncoding.EncodedLen(len(blob)))
	enc := base64.NewEncoder(base64.StdEncoding, &out)

	iterations := 0
	for off := 0; off < len(blob); off += chunkSize {
		end := min(off+chunkSize, len(blob))
		// bytes.Buffer writes never fail.
		_, _ = enc.Write(blob[off:end])
		iterations++
	}
	_ = enc.Close()
	return out.String(), iterations
}
