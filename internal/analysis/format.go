package analysis

import (
	"strings"

	"callintel/internal/recordings"
)

// FormatTranscript renders the transcript with display names in place of
// speaker labels. Diarized segments win over the flat transcript when present.
func FormatTranscript(transcript string, segments []recordings.Segment, mapping map[string]string) string {
	name := func(label string) string {
		if n := strings.TrimSpace(mapping[label]); n != "" {
			return n
		}
		return label
	}

	if len(segments) > 0 {
		var b strings.Builder
		prev := ""
		for _, s := range segments {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			speaker := name(s.Speaker)
			switch {
			case b.Len() > 0 && speaker == prev:
				b.WriteByte(' ')
			case b.Len() > 0:
				b.WriteByte('\n')
				fallthrough
			default:
				if speaker != "" {
					b.WriteString(speaker)
					b.WriteString(": ")
				}
			}
			b.WriteString(text)
			prev = speaker
		}
		return b.String()
	}

	if len(mapping) == 0 {
		return transcript
	}
	lines := strings.Split(transcript, "\n")
	for i, line := range lines {
		label, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if n, found := mapping[strings.TrimSpace(label)]; found && strings.TrimSpace(n) != "" {
			lines[i] = strings.TrimSpace(n) + ":" + rest
		}
	}
	return strings.Join(lines, "\n")
}
