package models

import (
	"strings"
	"time"
)

const videoDataPrefix = "data:video/"

// VideoDataPlaceholder stands in for the raw recording in API
// responses so clients never re-download the blob accidentally.
const VideoDataPlaceholder = "[VIDEO_DATA_PRESENT]"

// IsVideoDataURI reports whether the payload is an inline video data URI.
func IsVideoDataURI(payload string) bool {
	return strings.HasPrefix(payload, videoDataPrefix)
}

// DeriveVideoMetadata inspects an inline video data URI and derives its
// stored metadata. The size estimate reverses base64 expansion
// (3 decoded bytes per 4 encoded); format comes from the mime subtype,
// defaulting to webm. Returns nil for payloads that are not video data
// URIs.
func DeriveVideoMetadata(payload string, now time.Time) *VideoMetadata {
	if !IsVideoDataURI(payload) {
		return nil
	}

	format := "webm"
	if head, _, found := strings.Cut(payload, ";"); found {
		if _, subtype, ok := strings.Cut(head, "/"); ok && subtype != "" {
			format = subtype
		}
	}

	recordedAt := now
	return &VideoMetadata{
		Size:       int64((len(payload)*3 + 2) / 4),
		Format:     format,
		RecordedAt: &recordedAt,
	}
}

// MaskSectionData returns a copy of the optional section with the raw
// recording replaced by VideoDataPlaceholder.
func MaskSectionData(name string, data SectionData) SectionData {
	if name != SectionOptional || data == nil {
		return data
	}
	if _, ok := data["videoRecording"].(string); !ok {
		return data
	}
	out := data.Clone()
	if s, _ := out["videoRecording"].(string); s != "" {
		out["videoRecording"] = VideoDataPlaceholder
	}
	return out
}
