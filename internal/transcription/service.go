package transcription

import (
	"context"

	"callintel/internal/recordings"

	"github.com/shopspring/decimal"
)

// Response is what the transcription function returns. Success=false with a
// 2xx status is a failed transcription, not a transport error.
type Response struct {
	Success    bool                 `json:"success"`
	Transcript string               `json:"transcript,omitempty"`
	Error      string               `json:"error,omitempty"`
	Segments   []recordings.Segment `json:"segments,omitempty"`
	Confidence *decimal.Decimal     `json:"confidence,omitempty"`
}

// Service invokes the remote transcription function.
type Service interface {
	Invoke(ctx context.Context, p Payload) (Response, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, p Payload) (Response, error)

func (f ServiceFunc) Invoke(ctx context.Context, p Payload) (Response, error) { return f(ctx, p) }
