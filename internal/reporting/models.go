package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// RecordingsSummaryRequest requests aggregated recording metrics.
// Tenant isolation: OrganizationID is required.
type RecordingsSummaryRequest struct {
	OrganizationID string    `json:"organization_id"`
	Range          TimeRange `json:"range"`
	UserID         string    `json:"user_id,omitempty"`
}

type RecordingsSummary struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id,omitempty"`

	TotalRecordings   int `json:"total_recordings"`
	ChunkedRecordings int `json:"chunked_recordings"`

	Transcribing int `json:"transcribing"`
	InProgress   int `json:"in_progress"`
	Completed    int `json:"completed"`

	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`

	// SuccessRate is Succeeded / (Succeeded + Failed); zero when nothing finished.
	SuccessRate decimal.Decimal `json:"success_rate"`
	// AverageConfidence covers recordings that reported a confidence.
	AverageConfidence decimal.NullDecimal `json:"average_confidence"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	PerUser []UserSummary `json:"per_user,omitempty"`
}

type UserSummary struct {
	UserID     string `json:"user_id"`
	OwnerName  string `json:"owner_name,omitempty"`
	Recordings int    `json:"recordings"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
}
