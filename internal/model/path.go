package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// PathConfig holds the templates used to place downloads on disk.
//
// Album folder placeholders:
//   - {ArtistName}, {AlbumTitle}, {AlbumID}, {AlbumYear}, {Flag}
//
// Playlist folder placeholders:
//   - {PlaylistName}, {PlaylistUUID}
//
// Track and video file placeholders:
//   - {TrackNumber}, {VideoNumber}, {ArtistName}, {TrackTitle},
//     {VideoTitle}, {AlbumTitle}, {ExplicitFlag}, {TrackID}, {VideoID}
//
// Example configuration:
//
//	cfg := &PathConfig{
//	    DownloadPath:         "/home/user/Music/TIDAL",
//	    AlbumFolderFormat:    "{ArtistName}/{Flag} {AlbumTitle} [{AlbumID}] [{AlbumYear}]",
//	    PlaylistFolderFormat: "Playlist/{PlaylistName} [{PlaylistUUID}]",
//	    TrackFileFormat:      "{TrackNumber} - {ArtistName} - {TrackTitle}{ExplicitFlag}",
//	    VideoFileFormat:      "{VideoNumber} - {ArtistName} - {VideoTitle}{ExplicitFlag}",
//	}
type PathConfig struct {
	DownloadPath         string
	AlbumFolderFormat    string
	PlaylistFolderFormat string
	TrackFileFormat      string
	VideoFileFormat      string

	// UsePlaylistFolder places playlist items under the playlist folder
	// instead of their album folder.
	UsePlaylistFolder bool
}

const (
	maxFolderPathLen = 248
	maxFilePathLen   = 260
)

// AlbumPath is the folder that receives an album's tracks and cover.
func (c *PathConfig) AlbumPath(album *Album) string {
	folder := c.AlbumFolderFormat
	year := ""
	if !album.ReleaseDate.IsZero() {
		year = album.ReleaseDate.Format("2006")
	}
	folder = strings.ReplaceAll(folder, "{ArtistName}", SanitizeFileName(album.ArtistName()))
	folder = strings.ReplaceAll(folder, "{AlbumTitle}", SanitizeFileName(album.Title))
	folder = strings.ReplaceAll(folder, "{AlbumID}", album.ID)
	folder = strings.ReplaceAll(folder, "{AlbumYear}", year)
	folder = strings.ReplaceAll(folder, "{Flag}", album.Flag())
	return limitFolder(filepath.Join(c.DownloadPath, cleanSegments(folder)))
}

// PlaylistPath is the folder that receives a playlist's items.
func (c *PathConfig) PlaylistPath(playlist *Playlist) string {
	folder := c.PlaylistFolderFormat
	folder = strings.ReplaceAll(folder, "{PlaylistName}", SanitizeFileName(playlist.Title))
	folder = strings.ReplaceAll(folder, "{PlaylistUUID}", playlist.UUID)
	return limitFolder(filepath.Join(c.DownloadPath, cleanSegments(folder)))
}

// TrackPath computes the final file path of a track with the given
// extension (including the dot).
//
// A non-empty baseOverride replaces the download folder entirely: the
// file lands directly in baseOverride, without album or playlist folders.
// The same inputs always produce the same path.
func (c *PathConfig) TrackPath(track *Track, album *Album, playlist *Playlist, ext, baseOverride string) string {
	var base string
	switch {
	case baseOverride != "":
		base = baseOverride
	case playlist != nil && c.UsePlaylistFolder:
		base = c.PlaylistPath(playlist)
	case album != nil:
		base = c.AlbumPath(album)
		if album.NumberOfVolumes > 1 {
			base = filepath.Join(base, fmt.Sprintf("CD%d", track.VolumeNumber))
		}
	default:
		base = c.DownloadPath
	}

	number := track.TrackNumber
	if playlist != nil && c.UsePlaylistFolder && track.TrackNumberOnPlaylist > 0 {
		number = track.TrackNumberOnPlaylist
	}

	albumTitle := track.Album.Title
	if album != nil {
		albumTitle = album.Title
	}

	name := c.TrackFileFormat
	name = strings.ReplaceAll(name, "{TrackNumber}", fmt.Sprintf("%02d", number))
	name = strings.ReplaceAll(name, "{ArtistName}", track.ArtistName())
	name = strings.ReplaceAll(name, "{TrackTitle}", track.FullTitle())
	name = strings.ReplaceAll(name, "{AlbumTitle}", albumTitle)
	name = strings.ReplaceAll(name, "{TrackID}", track.ID)
	name = strings.ReplaceAll(name, "{ExplicitFlag}", explicitFlag(track.Explicit))

	return limitFile(base, SanitizeFileName(name), ext)
}

// VideoPath computes the final file path of a music video (.mp4).
func (c *PathConfig) VideoPath(video *Video, album *Album, playlist *Playlist) string {
	var base string
	switch {
	case playlist != nil && c.UsePlaylistFolder:
		base = c.PlaylistPath(playlist)
	case album != nil:
		base = c.AlbumPath(album)
	default:
		base = filepath.Join(c.DownloadPath, "Video")
	}

	name := c.VideoFileFormat
	name = strings.ReplaceAll(name, "{VideoNumber}", fmt.Sprintf("%02d", video.TrackNumber))
	name = strings.ReplaceAll(name, "{ArtistName}", video.ArtistName())
	name = strings.ReplaceAll(name, "{VideoTitle}", video.Title)
	name = strings.ReplaceAll(name, "{VideoID}", video.ID)
	name = strings.ReplaceAll(name, "{ExplicitFlag}", explicitFlag(video.Explicit))

	return limitFile(base, SanitizeFileName(name), ".mp4")
}

func explicitFlag(explicit bool) string {
	if explicit {
		return " (Explicit)"
	}
	return ""
}

// cleanSegments sanitizes each '/'-separated folder segment of a
// rendered template while keeping the separators.
func cleanSegments(folder string) string {
	parts := strings.Split(folder, "/")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(SanitizeFileName(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return filepath.Join(out...)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func limitFolder(path string) string {
	if len(path) >= maxFolderPathLen {
		return truncate(path, maxFolderPathLen-1)
	}
	return path
}

func limitFile(base, name, ext string) string {
	path := filepath.Join(base, name+ext)
	if len(path) >= maxFilePathLen {
		room := maxFilePathLen - 1 - len(base) - 1 - len(ext)
		if room > 0 && room < len(name) {
			path = filepath.Join(base, truncate(name, room)+ext)
		}
	}
	return path
}

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots = regexp.MustCompile(`\.+$`)
	runsOfSpaces = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in
// file or folder names on any supported platform.
//
//   - Invalid characters (<>:"/\|?* and control chars) become underscores
//   - Trailing dots are removed (Windows limitation)
//   - Runs of whitespace collapse to a single space
//   - Trailing whitespace is removed
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2") // "Song_ Part 1_2"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = runsOfSpaces.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}
