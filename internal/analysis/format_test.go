package analysis

import (
	"testing"

	"callintel/internal/recordings"

	"github.com/shopspring/decimal"
)

func seg(speaker, text string) recordings.Segment {
	return recordings.Segment{Speaker: speaker, Start: decimal.Zero, End: decimal.Zero, Text: text}
}

func TestFormatTranscript_SegmentsWithMapping(t *testing.T) {
	got := FormatTranscript("ignored", []recordings.Segment{
		seg("Speaker 0", "Hi there."),
		seg("Speaker 0", "Thanks for joining."),
		seg("Speaker 1", " Happy to be here. "),
		seg("Speaker 1", ""),
		seg("Speaker 2", "Hello."),
	}, map[string]string{"Speaker 0": "Dana", "Speaker 1": "Acme buyer"})

	want := "Dana: Hi there. Thanks for joining.\nAcme buyer: Happy to be here.\nSpeaker 2: Hello."
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatTranscript_FlatTranscriptPrefixes(t *testing.T) {
	in := "Speaker 0: hello\nSpeaker 1: hi\nno label here"
	got := FormatTranscript(in, nil, map[string]string{"Speaker 1": "Sam"})
	want := "Speaker 0: hello\nSam: hi\nno label here"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestFormatTranscript_NoMappingUnchanged(t *testing.T) {
	in := "Speaker 0: hello"
	if got := FormatTranscript(in, nil, nil); got != in {
		t.Fatalf("expected unchanged transcript, got %q", got)
	}
}
