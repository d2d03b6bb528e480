package model

import (
	"net/url"
	"path"
	"strings"
)

// Stream describes one resolved audio stream. It is created per
// transfer attempt and must not be cached across attempts.
type Stream struct {
	TrackID      string
	SoundQuality string
	Codec        string
	BitDepth     int
	SampleRate   int
	// EncryptionKey is the wrapped key token; empty for clear streams.
	EncryptionKey string
	URL           string
	// URLs lists every segment. A single-file stream has one entry.
	URLs []string
}

// Encrypted reports whether the stream payload must be decrypted.
func (s *Stream) Encrypted() bool {
	return s != nil && s.EncryptionKey != ""
}

// SegmentURLs returns URLs, falling back to the single URL.
func (s *Stream) SegmentURLs() []string {
	if len(s.URLs) > 0 {
		return s.URLs
	}
	if s.URL == "" {
		return nil
	}
	return []string{s.URL}
}

// VideoStream describes one resolved video stream.
type VideoStream struct {
	VideoID    string
	Codec      string
	Resolution string
	M3U8URL    string
}

var containerExtensions = []string{".flac", ".mp4", ".m4a", ".m4b", ".mp3", ".ogg", ".aac"}

// ContainerExtension guesses the extension of the bytes the stream
// delivers, from the URL path first and the codec second.
func (s *Stream) ContainerExtension() string {
	if ext := urlExtension(s.URL); ext != "" {
		return ext
	}
	for _, u := range s.URLs {
		if ext := urlExtension(u); ext != "" {
			return ext
		}
	}

	codec := strings.ToLower(s.Codec)
	switch {
	case strings.Contains(codec, "flac"):
		return ".flac"
	case strings.Contains(codec, "mp3"):
		return ".mp3"
	case strings.Contains(codec, "ac4"), strings.Contains(codec, "mha1"):
		return ".mp4"
	default:
		return ".m4a"
	}
}

func urlExtension(raw string) string {
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	for _, known := range containerExtensions {
		if ext == known {
			return ext
		}
	}
	return ""
}

// TrackExtension is the extension of the file that will finally be
// published for a track, given the configured conversion format.
//
// A conversion format decides the extension on its own. Otherwise
// FLAC carried inside MP4 is published as .flac (after a remux), Dolby
// and MPEG-H audio keep .mp4 and everything else is .m4a.
func TrackExtension(convertFormat string, s *Stream) string {
	switch strings.ToLower(convertFormat) {
	case "alac", "m4a", "aac":
		return ".m4a"
	case "flac":
		return ".flac"
	case "wav":
		return ".wav"
	case "mp3":
		return ".mp3"
	}

	lowerURL := strings.ToLower(s.URL)
	codec := strings.ToLower(s.Codec)
	switch {
	case strings.Contains(lowerURL, ".flac"):
		return ".flac"
	case strings.Contains(lowerURL, ".mp4"):
		if strings.Contains(codec, "flac") {
			return ".flac"
		}
		if strings.Contains(codec, "ac4") || strings.Contains(codec, "mha1") {
			return ".mp4"
		}
		return ".m4a"
	default:
		return ".m4a"
	}
}

// NeedsFLACRemux reports whether FLAC frames must be lifted out of a
// non-FLAC container to produce the requested final extension.
func NeedsFLACRemux(downloadExt, finalExt string, s *Stream) bool {
	return finalExt == ".flac" &&
		downloadExt != ".flac" &&
		strings.Contains(strings.ToLower(s.Codec), "flac")
}
