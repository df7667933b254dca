package callcache

import (
	"context"
	"testing"
	"time"

	"callintel/internal/chunkstore"
	"callintel/internal/objectstore"
	"callintel/internal/pipeline"
	"callintel/internal/recordings"
	"callintel/internal/transcription"
	"callintel/pkg/logger"
)

func TestAddCall_EndToEndThroughPipeline(t *testing.T) {
	store := recordings.NewMemoryStore()
	reg := NewRegistry(store, objectstore.NewMemoryStore(), logger.Discard())

	var got transcription.Payload
	p := pipeline.New(pipeline.Deps{
		Recordings: store,
		Chunks:     chunkstore.NewMemoryStore(),
		Transcriber: transcription.ServiceFunc(func(ctx context.Context, pl transcription.Payload) (transcription.Response, error) {
			got = pl
			return transcription.Response{Success: true, Transcript: "hello"}, nil
		}),
		Cache:        reg,
		PollInterval: time.Millisecond,
		PollCeiling:  10 * time.Millisecond,
		Log:          logger.Discard(),
	})
	reg.SetTranscriber(p)

	c := reg.For("u1")
	if _, err := c.AddCall(context.Background(), newCall()); err != nil {
		t.Fatalf("add: %v", err)
	}
	reg.Wait()
	p.Wait()

	if got.Variant() != transcription.VariantStoragePath {
		t.Fatalf("expected storage path payload, got %q", got.Variant())
	}
	head := c.List()[0]
	if head.Status != recordings.StatusCompleted || head.Transcript != "hello" {
		t.Fatalf("cache not reconciled: %s %q", head.Status, head.Transcript)
	}
	stored, _ := store.Get(context.Background(), head.ID)
	if stored.Outcome != recordings.OutcomeSucceeded {
		t.Fatalf("unexpected stored outcome %s", stored.Outcome)
	}
}
