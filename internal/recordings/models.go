package recordings

import (
	"time"

	"github.com/shopspring/decimal"
)

// CallRecording is one captured sales-call audio session.
//
// Multi-tenant invariant: OrganizationID is required on every row.
//
// ChunksUploaded is derived from the chunk set on read and never written directly.
type CallRecording struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	UserID         string `json:"user_id" db:"user_id"`
	OwnerName      string `json:"owner_name,omitempty" db:"owner_name"`
	CustomerName   string `json:"customer_name" db:"customer_name"`

	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DurationSeconds int        `json:"duration" db:"duration_seconds"`

	Status  Status  `json:"status" db:"status"`
	Outcome Outcome `json:"outcome" db:"outcome"`

	Transcript     string              `json:"transcript" db:"transcript"`
	Segments       []Segment           `json:"segments,omitempty" db:"segments"`
	SpeakerMapping map[string]string   `json:"speaker_mapping,omitempty" db:"speaker_mapping"`
	Confidence     decimal.NullDecimal `json:"confidence" db:"confidence"`

	TotalChunks    int  `json:"total_chunks" db:"total_chunks"`
	ChunksUploaded int  `json:"chunks_uploaded" db:"-"`
	UploadComplete bool `json:"upload_complete" db:"upload_complete"`

	AudioPath string `json:"audio_path,omitempty" db:"audio_path"`
	AudioHash string `json:"audio_hash,omitempty" db:"audio_hash"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Segment is one diarized span of the transcript.
type Segment struct {
	Speaker string          `json:"speaker"`
	Start   decimal.Decimal `json:"start"`
	End     decimal.Decimal `json:"end"`
	Text    string          `json:"text"`
}

// Placeholder text shown until a transcript arrives.
const PendingTranscript = "Transcribing..."

// FailedTranscript replaces the transcript when the transcription call fails.
const FailedTranscript = "Transcription failed"

// ReadyForTranscription reports whether every expected chunk landed and the
// recorder flagged the upload complete.
func ReadyForTranscription(totalChunks, uploaded int, complete bool) bool {
	return complete && totalChunks > 0 && uploaded >= totalChunks
}
