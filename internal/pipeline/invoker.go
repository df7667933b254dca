package pipeline

import (
	"context"
	"errors"
	"fmt"

	"callintel/internal/recordings"
	"callintel/internal/transcription"

	"github.com/shopspring/decimal"
)

var ErrTranscriptionUnsuccessful = errors.New("pipeline: transcription unsuccessful")

// Invoker calls the transcription function exactly once per Invoke.
type Invoker struct {
	svc transcription.Service
}

func NewInvoker(svc transcription.Service) *Invoker { return &Invoker{svc: svc} }

// Invoke treats a success=false body the same as a transport failure.
func (i *Invoker) Invoke(ctx context.Context, p transcription.Payload) (transcription.Response, error) {
	resp, err := i.svc.Invoke(ctx, p)
	if err != nil {
		return transcription.Response{}, fmt.Errorf("invoke transcription: %w", err)
	}
	if !resp.Success {
		if resp.Error != "" {
			return resp, fmt.Errorf("%w: %s", ErrTranscriptionUnsuccessful, resp.Error)
		}
		return resp, ErrTranscriptionUnsuccessful
	}
	return resp, nil
}

// Result is what gets written back to the recording once transcription settles.
type Result struct {
	Transcript string
	Status     recordings.Status
	Outcome    recordings.Outcome
	Segments   []recordings.Segment
	Confidence *decimal.Decimal
}

func SucceededResult(resp transcription.Response) Result {
	return Result{
		Transcript: resp.Transcript,
		Status:     recordings.StatusCompleted,
		Outcome:    recordings.OutcomeSucceeded,
		Segments:   resp.Segments,
		Confidence: resp.Confidence,
	}
}

// FailedResult still finishes the pipeline; completed here means "done running".
func FailedResult() Result {
	return Result{
		Transcript: recordings.FailedTranscript,
		Status:     recordings.StatusCompleted,
		Outcome:    recordings.OutcomeFailed,
	}
}

func (r Result) Patch() recordings.Patch {
	p := recordings.Patch{
		Transcript: recordings.StringPtr(r.Transcript),
		Status:     recordings.StatusPtr(r.Status),
		Outcome:    recordings.OutcomePtr(r.Outcome),
		Segments:   r.Segments,
	}
	if r.Confidence != nil {
		c := *r.Confidence
		p.Confidence = &c
	}
	return p
}
