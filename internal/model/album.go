package model

import (
	"time"

	"github.com/handiism/tidal-downloader/internal/quality"
)

// Album is a catalog album with the metadata used for paths and tags.
type Album struct {
	ID      string
	Title   string
	Version string
	Artists []Artist
	// Cover is the catalog image identifier, not a URL.
	Cover       string
	ReleaseDate time.Time

	NumberOfTracks  int
	NumberOfVolumes int
	Duration        int
	Explicit        bool

	UPC             string
	Copyright       string
	AudioQuality    string
	AudioModes      []string
	MediaTags       []string
	Popularity      int
	StreamStartDate time.Time
}

// ArtistName returns the primary album artist.
func (a *Album) ArtistName() string {
	if len(a.Artists) == 0 {
		return ""
	}
	return a.Artists[0].Name
}

// HasCover reports whether a cover image can be fetched for the album.
func (a *Album) HasCover() bool {
	return a != nil && a.Cover != ""
}

// Flag is the short marker used in album folder names:
// "M" for master quality, "E" for explicit content, "D" for Dolby Atmos.
func (a *Album) Flag() string {
	flag := ""
	if quality.Rank(a.AudioQuality) >= quality.Rank(quality.HiRes) {
		flag += "M"
	}
	for _, mode := range a.AudioModes {
		if mode == "DOLBY_ATMOS" {
			flag += "D"
			break
		}
	}
	if a.Explicit {
		flag += "E"
	}
	return flag
}

// Playlist is a user or editorial playlist.
type Playlist struct {
	UUID           string
	Title          string
	Description    string
	NumberOfTracks int
	NumberOfVideos int
	Duration       int
	Created        time.Time
	LastUpdated    time.Time
	// CreatorID is empty for editorial playlists.
	CreatorID string
}
