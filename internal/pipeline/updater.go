package pipeline

import (
	"context"
	"log/slog"

	"callintel/internal/recordings"
	"callintel/pkg/logger"
)

// CacheMirror receives the same patch the recording store got, keyed by owner.
type CacheMirror interface {
	Mirror(userID, recordingID string, p recordings.Patch)
}

// Updater writes results to the recording store and then to the call cache.
// The two writes are not a transaction: a failed remote write is logged and the
// cache is still patched.
type Updater struct {
	store recordings.Store
	cache CacheMirror
	log   *slog.Logger
}

func NewUpdater(store recordings.Store, cache CacheMirror, log *slog.Logger) *Updater {
	return &Updater{store: store, cache: cache, log: logger.OrDefault(log)}
}

// Apply returns the remote write error so callers can gate follow-up work on it.
func (u *Updater) Apply(ctx context.Context, rec recordings.CallRecording, p recordings.Patch) error {
	err := u.store.Update(ctx, rec.ID, p)
	if err != nil {
		u.log.Error("persist recording update failed",
			"recording_id", rec.ID,
			"user_id", rec.UserID,
			"err", err,
		)
	}
	if u.cache != nil {
		u.cache.Mirror(rec.UserID, rec.ID, p)
	}
	return err
}
