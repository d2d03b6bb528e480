package model

import (
	"strings"
	"time"
)

// Artist is a performer credited on a track, video or album.
type Artist struct {
	ID   string
	Name string
	// Type is MAIN or FEATURED.
	Type string
}

// ArtistNames joins artist names with ", ".
func ArtistNames(artists []Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

// AlbumRef is the minimal album reference embedded in a track.
type AlbumRef struct {
	ID    string
	Title string
	Cover string
}

// Track is a single catalog track.
//
// Tracks are treated as immutable once fetched, with one exception:
// TrackNumberOnPlaylist is assigned by the batch downloader when a
// collection establishes the item's position.
type Track struct {
	ID      string
	Title   string
	Version string
	Album   AlbumRef
	Artists []Artist

	TrackNumber           int
	VolumeNumber          int
	TrackNumberOnPlaylist int

	// Duration in seconds.
	Duration int
	Explicit bool

	ISRC            string
	Copyright       string
	ReplayGain      float64
	Peak            float64
	AudioQuality    string
	AudioModes      []string
	MediaTags       []string
	Popularity      int
	StreamStartDate time.Time
}

// ArtistName returns the primary artist name, or "" when uncredited.
func (t *Track) ArtistName() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// FullTitle is the title with the version appended in parentheses.
//
//	Track{Title: "Song", Version: "Live"}.FullTitle() // "Song (Live)"
func (t *Track) FullTitle() string {
	if t.Version == "" {
		return t.Title
	}
	return t.Title + " (" + t.Version + ")"
}

// Video is a single catalog music video.
type Video struct {
	ID           string
	Title        string
	Album        *AlbumRef
	Artists      []Artist
	TrackNumber  int
	VolumeNumber int
	Duration     int
	Explicit     bool
	Quality      string
	ReleaseDate  time.Time
}

// ArtistName returns the primary artist name, or "" when uncredited.
func (v *Video) ArtistName() string {
	if len(v.Artists) == 0 {
		return ""
	}
	return v.Artists[0].Name
}

// Contributor is one production or performance credit on a track.
type Contributor struct {
	Name string
	Role string
}

// Lyrics holds plain and time-synced lyrics for a track.
type Lyrics struct {
	Text string
	// Subtitles is LRC formatted, one "[mm:ss.xx]line" per row.
	Subtitles string
}
