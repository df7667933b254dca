package objectstore

import (
	"fmt"
	"mime"
	"strings"
)

// RecordingPath is where a single-blob recording lives. The content hash keeps
// re-uploads of different audio under the same recording id from colliding.
func RecordingPath(userID, recordingID, contentHash, ext string) string {
	h := contentHash
	if len(h) > 16 {
		h = h[:16]
	}
	return fmt.Sprintf("recordings/%s/%s-%s.%s", userID, recordingID, h, ext)
}

// ChunkPath is where chunk seq of a chunked recording lives.
func ChunkPath(recordingID string, seq int, ext string) string {
	return fmt.Sprintf("chunks/%s/%05d.%s", recordingID, seq, ext)
}

// ExtensionFor maps an audio content type to a file extension. Unknown types
// fall back to webm, which is what browsers record by default.
func ExtensionFor(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mt {
	case "audio/mp4", "audio/x-m4a", "audio/aac":
		return "m4a"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/ogg":
		return "ogg"
	default:
		return "webm"
	}
}
