package recordings

import "errors"

// Status is the pipeline lifecycle of a recording.
//
// completed means the pipeline finished running, not that it succeeded; Outcome
// carries success or failure.
type Status string

const (
	StatusTranscribing Status = "transcribing"
	StatusInProgress   Status = "in-progress"
	StatusCompleted    Status = "completed"
)

// Outcome records whether the last pipeline run produced a transcript.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

var ErrInvalidTransition = errors.New("recordings: invalid status transition")

var transitions = map[Status][]Status{
	StatusTranscribing: {StatusCompleted, StatusInProgress},
	StatusInProgress:   {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusTranscribing, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

func (s Status) Terminal() bool { return s == StatusCompleted }

// CanTransition reports whether a normal (non-retry) write may move s to next.
// Rewriting the same status is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// CanRetry reports whether an explicit retry may send s back to transcribing.
func (s Status) CanRetry() bool {
	return s == StatusCompleted || s == StatusInProgress || s == StatusTranscribing
}

// AllowedFrom lists the statuses a write targeting next may start from.
func AllowedFrom(next Status, retry bool) []Status {
	var out []Status
	for _, from := range []Status{StatusTranscribing, StatusInProgress, StatusCompleted} {
		if retry && next == StatusTranscribing && from.CanRetry() {
			out = append(out, from)
			continue
		}
		if from.CanTransition(next) {
			out = append(out, from)
		}
	}
	return out
}
