package likes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/handiism/tidal-downloader/internal/logging"
	"github.com/handiism/tidal-downloader/internal/model"
)

const (
	titlePrefix = "Liked Songs "
	dateLayout  = "02-01-2006"
)

var (
	// ErrNoFavorites is returned when the account has no liked tracks.
	ErrNoFavorites = errors.New("no liked tracks found")

	// ErrNoCandidates is returned when no owned playlist looks like a
	// liked-songs snapshot.
	ErrNoCandidates = errors.New("no existing liked songs playlists found")
)

// Catalog is the subset of the catalog client the service needs.
type Catalog interface {
	FavoriteTracks(ctx context.Context) ([]*model.Track, error)
	OwnedPlaylists(ctx context.Context) ([]*model.Playlist, error)
	CreatePlaylist(ctx context.Context, title, description string) (*model.Playlist, error)
	ClearPlaylist(ctx context.Context, uuid string) error
	AddTracksToPlaylist(ctx context.Context, uuid string, trackIDs []string) error
}

// Candidate is an owned playlist named after a liked-songs snapshot.
type Candidate struct {
	Playlist *model.Playlist
	// Date is zero when the title suffix is not a DD-MM-YYYY date.
	Date time.Time
}

// Service snapshots the liked tracks into playlists.
type Service struct {
	catalog Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a Service. A nil now defaults to time.Now.
func NewService(catalog Catalog, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{catalog: catalog, logger: logger, now: now}
}

// Title returns the snapshot playlist title for day.
func Title(day time.Time) string {
	return titlePrefix + day.Format(dateLayout)
}

// CreateFromLiked creates a new playlist holding every liked track.
func (s *Service) CreateFromLiked(ctx context.Context) (*model.Playlist, int, error) {
	ids, err := s.likedIDs(ctx)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	playlist, err := s.catalog.CreatePlaylist(ctx, Title(now), "Auto-generated from liked tracks on "+now.Format(dateLayout))
	if err != nil {
		return nil, 0, err
	}
	if playlist == nil || playlist.UUID == "" {
		return nil, 0, errors.New("create playlist: no playlist returned")
	}
	if err := s.catalog.AddTracksToPlaylist(ctx, playlist.UUID, ids); err != nil {
		return playlist, 0, err
	}
	s.logger.Info("liked songs playlist created", "uuid", playlist.UUID, "title", playlist.Title, "tracks", len(ids))
	return playlist, len(ids), nil
}

// Candidates lists owned liked-songs playlists, newest first. Playlists
// whose date cannot be parsed sort last.
func (s *Service) Candidates(ctx context.Context) ([]Candidate, error) {
	owned, err := s.catalog.OwnedPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	var out []Candidate
	for _, p := range owned {
		if p == nil {
			continue
		}
		title := strings.TrimSpace(p.Title)
		suffix, ok := strings.CutPrefix(title, titlePrefix)
		if !ok {
			continue
		}
		c := Candidate{Playlist: p}
		if d, err := time.Parse(dateLayout, strings.TrimSpace(suffix)); err == nil {
			c.Date = d
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrNoCandidates
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// UpdateFromLiked replaces the contents of target with the liked tracks.
// Favorites are fetched first, so an empty account leaves target as is.
func (s *Service) UpdateFromLiked(ctx context.Context, target *model.Playlist) (int, error) {
	ids, err := s.likedIDs(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.catalog.ClearPlaylist(ctx, target.UUID); err != nil {
		return 0, err
	}
	if err := s.catalog.AddTracksToPlaylist(ctx, target.UUID, ids); err != nil {
		return 0, err
	}
	s.logger.Info("liked songs playlist updated", "uuid", target.UUID, "title", target.Title, "tracks", len(ids))
	return len(ids), nil
}

func (s *Service) likedIDs(ctx context.Context) ([]string, error) {
	tracks, err := s.catalog.FavoriteTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch liked tracks: %w", err)
	}
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t != nil && t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoFavorites
	}
	return ids, nil
}
