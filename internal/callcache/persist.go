package callcache

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"callintel/internal/objectstore"
	"callintel/internal/recordings"

	"lukechampine.com/blake3"
)

// persist stores the row, uploads the audio and hands off to transcription.
// Failures end as a failed transcript on the entry, never as a stuck one.
func (c *Cache) persist(ctx context.Context, placeholder recordings.CallRecording, nc NewCall) {
	log := c.reg.log.With("user_id", c.userID, "placeholder_id", placeholder.ID)

	row := placeholder
	row.ID = ""
	rec, err := c.reg.store.Upsert(ctx, row)
	if err != nil {
		log.Error("persist call failed", "err", err)
		c.Patch(placeholder.ID, func(e *recordings.CallRecording) {
			e.Status = recordings.StatusCompleted
			e.Outcome = recordings.OutcomeFailed
			e.Transcript = recordings.FailedTranscript
		})
		return
	}
	if !c.swapID(placeholder.ID, rec) {
		// LoadCalls replaced the list meanwhile; keep the stored row visible.
		c.put(rec)
	}
	log = log.With("recording_id", rec.ID)

	hash, err := contentHash(bytes.NewReader(nc.Audio))
	if err != nil {
		log.Error("hash audio failed", "err", err)
	} else if c.reg.objects != nil {
		path := objectstore.RecordingPath(c.userID, rec.ID, hash, objectstore.ExtensionFor(nc.ContentType))
		obj, err := c.reg.objects.Upload(ctx, path, nc.ContentType, bytes.NewReader(nc.Audio))
		if err != nil {
			// Transcription falls back to sending the blob inline.
			log.Warn("upload audio failed", "path", path, "err", err)
		} else {
			p := recordings.Patch{AudioPath: &obj.Path, AudioHash: &hash}
			if err := c.reg.store.Update(ctx, rec.ID, p); err != nil {
				log.Error("record audio path failed", "err", err)
			}
			rec.AudioPath, rec.AudioHash = obj.Path, hash
			c.Patch(rec.ID, func(e *recordings.CallRecording) {
				e.AudioPath, e.AudioHash = obj.Path, hash
			})
		}
	}

	if t := c.reg.transcriber(); t != nil {
		t.TranscribeUpload(ctx, rec, nc.Audio)
	} else {
		log.Warn("no transcriber wired, call left in transcribing")
	}
}

func contentHash(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("calculating blake3 hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
