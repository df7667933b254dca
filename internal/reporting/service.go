package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"callintel/internal/recordings"

	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting. Implementations must filter
// by organization. recordings.Store satisfies it.
type Repository interface {
	ListForOrganization(ctx context.Context, organizationID string, from, to time.Time) ([]recordings.CallRecording, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) RecordingsSummary(ctx context.Context, req RecordingsSummaryRequest) (RecordingsSummary, error) {
	if req.OrganizationID == "" {
		return RecordingsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return RecordingsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return RecordingsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListForOrganization(ctx, req.OrganizationID, req.Range.From, req.Range.To)
	if err != nil {
		return RecordingsSummary{}, err
	}

	out := RecordingsSummary{OrganizationID: req.OrganizationID, UserID: req.UserID}
	users := map[string]*UserSummary{}
	confSum, confN := decimal.Zero, 0

	for _, r := range rows {
		if r.OrganizationID != req.OrganizationID {
			continue
		}
		if req.UserID != "" && r.UserID != req.UserID {
			continue
		}
		out.TotalRecordings++
		out.TotalDurationSeconds += r.DurationSeconds
		if r.TotalChunks > 0 {
			out.ChunkedRecordings++
		}

		switch r.Status {
		case recordings.StatusTranscribing:
			out.Transcribing++
		case recordings.StatusInProgress:
			out.InProgress++
		case recordings.StatusCompleted:
			out.Completed++
		}

		u := users[r.UserID]
		if u == nil {
			u = &UserSummary{UserID: r.UserID, OwnerName: r.OwnerName}
			users[r.UserID] = u
		}
		u.Recordings++

		switch r.Outcome {
		case recordings.OutcomeSucceeded:
			out.Succeeded++
			u.Succeeded++
		case recordings.OutcomeFailed:
			out.Failed++
			u.Failed++
		default:
			out.Pending++
		}

		if r.Confidence.Valid {
			confSum = confSum.Add(r.Confidence.Decimal)
			confN++
		}
	}

	if out.TotalRecordings > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalRecordings
	}
	if finished := out.Succeeded + out.Failed; finished > 0 {
		out.SuccessRate = decimal.NewFromInt(int64(out.Succeeded)).
			DivRound(decimal.NewFromInt(int64(finished)), 4)
	}
	if confN > 0 {
		out.AverageConfidence = decimal.NewNullDecimal(confSum.DivRound(decimal.NewFromInt(int64(confN)), 4))
	}

	out.PerUser = make([]UserSummary, 0, len(users))
	for _, u := range users {
		out.PerUser = append(out.PerUser, *u)
	}
	sort.Slice(out.PerUser, func(i, j int) bool {
		if out.PerUser[i].Recordings != out.PerUser[j].Recordings {
			return out.PerUser[i].Recordings > out.PerUser[j].Recordings
		}
		return out.PerUser[i].UserID < out.PerUser[j].UserID
	})
	return out, nil
}
