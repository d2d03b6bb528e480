package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/handiism/tidal-downloader/internal/download"
)

// Kind is the catalog object a Target points at.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
	KindVideo    Kind = "video"
)

// ErrBadTarget is returned for input ParseTarget cannot place.
var ErrBadTarget = errors.New("not a track, album, playlist or video link")

// Target is one downloadable catalog object.
type Target struct {
	Kind Kind
	ID   string
}

func (t Target) String() string { return string(t.Kind) + " " + t.ID }

// ParseTarget accepts a share link such as
// "https://tidal.com/browse/album/123" or "https://listen.tidal.com/track/5",
// as well as the short forms "album/123" and "album:123".
func ParseTarget(input string) (Target, error) {
	s := strings.TrimSpace(input)
	if kind, id, ok := strings.Cut(s, ":"); ok && !strings.HasPrefix(id, "//") {
		return newTarget(kind, id, input)
	}

	path := s
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return Target{}, fmt.Errorf("%q: %w", input, ErrBadTarget)
		}
		path = u.Path
	} else if i := strings.Index(s, "tidal.com/"); i >= 0 {
		path = s[i+len("tidal.com"):]
	}

	// The object kind is the last known segment followed by an ID, so
	// prefixes such as /browse or /artist/1/ are skipped.
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	for i := len(segments) - 2; i >= 0; i-- {
		if t, err := newTarget(segments[i], segments[i+1], input); err == nil {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("%q: %w", input, ErrBadTarget)
}

func newTarget(kind, id, input string) (Target, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(kind)))
	id = strings.TrimSpace(id)
	switch k {
	case KindTrack, KindAlbum, KindPlaylist, KindVideo:
	default:
		return Target{}, fmt.Errorf("%q: %w", input, ErrBadTarget)
	}
	if id == "" {
		return Target{}, fmt.Errorf("%q: %w", input, ErrBadTarget)
	}
	return Target{Kind: k, ID: id}, nil
}

// Download runs the Manager call matching t. startIndex only applies to
// albums and playlists.
func (a *App) Download(ctx context.Context, t Target, startIndex int) (download.Summary, error) {
	switch t.Kind {
	case KindTrack:
		return a.Manager.Track(ctx, t.ID)
	case KindAlbum:
		return a.Manager.Album(ctx, t.ID, startIndex)
	case KindPlaylist:
		return a.Manager.Playlist(ctx, t.ID, startIndex)
	case KindVideo:
		return a.Manager.Video(ctx, t.ID)
	default:
		return download.Summary{}, fmt.Errorf("%s: %w", t, ErrBadTarget)
	}
}
