package recordings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Patch is a partial update. Nil fields are left untouched.
// Last writer wins; there is no version check.
type Patch struct {
	CustomerName    *string
	EndedAt         *time.Time
	DurationSeconds *int

	Status  *Status
	Outcome *Outcome
	// Retry permits the status to move back to transcribing from any state.
	Retry bool

	Transcript     *string
	Segments       []Segment
	SpeakerMapping map[string]string
	Confidence     *decimal.Decimal

	TotalChunks    *int
	UploadComplete *bool

	AudioPath *string
	AudioHash *string
}

func StatusPtr(s Status) *Status    { return &s }
func OutcomePtr(o Outcome) *Outcome { return &o }
func StringPtr(s string) *string    { return &s }

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.CustomerName == nil && p.EndedAt == nil && p.DurationSeconds == nil &&
		p.Status == nil && p.Outcome == nil && p.Transcript == nil && p.Segments == nil &&
		p.SpeakerMapping == nil && p.Confidence == nil && p.TotalChunks == nil &&
		p.UploadComplete == nil && p.AudioPath == nil && p.AudioHash == nil
}

// ValidateAgainst checks the status transition the patch would perform on r.
func (p Patch) ValidateAgainst(r CallRecording) error {
	if p.Status == nil {
		return nil
	}
	if !p.Status.Valid() {
		return ErrInvalidTransition
	}
	for _, from := range AllowedFrom(*p.Status, p.Retry) {
		if from == r.Status {
			return nil
		}
	}
	return ErrInvalidTransition
}

// ApplyTo mutates r in place after validating the status transition.
func (p Patch) ApplyTo(r *CallRecording) error {
	if err := p.ValidateAgainst(*r); err != nil {
		return err
	}
	if p.CustomerName != nil {
		r.CustomerName = *p.CustomerName
	}
	if p.EndedAt != nil {
		t := *p.EndedAt
		r.EndedAt = &t
	}
	if p.DurationSeconds != nil {
		r.DurationSeconds = *p.DurationSeconds
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Outcome != nil {
		r.Outcome = *p.Outcome
	}
	if p.Transcript != nil {
		r.Transcript = *p.Transcript
	}
	if p.Segments != nil {
		r.Segments = append([]Segment(nil), p.Segments...)
	}
	if p.SpeakerMapping != nil {
		m := make(map[string]string, len(p.SpeakerMapping))
		for k, v := range p.SpeakerMapping {
			m[k] = v
		}
		r.SpeakerMapping = m
	}
	if p.Confidence != nil {
		r.Confidence = decimal.NewNullDecimal(*p.Confidence)
	}
	if p.TotalChunks != nil {
		r.TotalChunks = *p.TotalChunks
	}
	if p.UploadComplete != nil {
		r.UploadComplete = *p.UploadComplete
	}
	if p.AudioPath != nil {
		r.AudioPath = *p.AudioPath
	}
	if p.AudioHash != nil {
		r.AudioHash = *p.AudioHash
	}
	return nil
}
