package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClient_PostsPayloadWithBearer(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer key")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true,"transcript":"hi","segments":[{"speaker":"A","start":"0.5","end":"1.25","text":"hi"}],"confidence":0.91}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "k", time.Second)
	resp, err := c.Invoke(context.Background(), Payload{RecordingID: "r1", ChunkRecordingID: "r1"})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !resp.Success || resp.Transcript != "hi" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Segments) != 1 || resp.Segments[0].End.String() != "1.25" {
		t.Fatalf("unexpected segments %+v", resp.Segments)
	}
	if resp.Confidence == nil || resp.Confidence.String() != "0.91" {
		t.Fatalf("unexpected confidence %v", resp.Confidence)
	}
	if got.ChunkRecordingID != "r1" || got.StoragePath != "" {
		t.Fatalf("unexpected payload on the wire %+v", got)
	}
}

func TestHTTPClient_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	_, err := c.Invoke(context.Background(), Payload{RecordingID: "r1", StoragePath: "p"})
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected 502 error, got %v", err)
	}
}

func TestHTTPClient_UnsuccessfulBodyIsNotTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"unsupported codec"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	resp, err := c.Invoke(context.Background(), Payload{RecordingID: "r1", StoragePath: "p"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if resp.Success || resp.Error != "unsupported codec" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHTTPClient_RejectsInvalidPayload(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", "", time.Second)
	if _, err := c.Invoke(context.Background(), Payload{RecordingID: "r1"}); err == nil {
		t.Fatalf("expected validation error")
	}
}
