package library

import (
	"context"
	"log/slog"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/logging"
	"github.com/handiism/tidal-downloader/internal/model"
)

// MetadataSource supplies fresh metadata for a refresh.
type MetadataSource interface {
	Track(ctx context.Context, id string) (*model.Track, error)
	Album(ctx context.Context, id string) (*model.Album, error)
	Contributors(ctx context.Context, trackID string) ([]model.Contributor, error)
	Lyrics(ctx context.Context, trackID string) (*model.Lyrics, error)
}

// TagWriter rewrites the tags of a file.
type TagWriter interface {
	Write(ctx context.Context, req audio.WriteRequest) error
}

// RefreshReport counts what a refresh did.
type RefreshReport struct {
	Refreshed int
	Untracked int
	Failed    int
}

// Refresher re-tags already downloaded files from current catalog data.
type Refresher struct {
	source MetadataSource
	reader TagReader
	writer TagWriter
	logger *slog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(source MetadataSource, reader TagReader, writer TagWriter, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Refresher{source: source, reader: reader, writer: writer, logger: logger}
}

// Refresh walks dir and rewrites the tags of every file that carries a
// track identifier. The recorded stream quality is kept, since nothing
// was downloaded again.
func (r *Refresher) Refresh(ctx context.Context, dir string) (RefreshReport, error) {
	var report RefreshReport
	err := walkAudio(dir, "", func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, err := r.reader.ReadIdentity(path)
		if err != nil || id.TrackID == "" {
			report.Untracked++
			return nil
		}
		log := r.logger.With("track_id", id.TrackID, "path", path)

		track, err := r.source.Track(ctx, id.TrackID)
		if err != nil {
			log.Warn("refresh lookup failed", "error", err)
			report.Failed++
			return nil
		}
		album, err := r.source.Album(ctx, track.Album.ID)
		if err != nil {
			log.Debug("album unavailable", "error", err)
		}
		contributors, _ := r.source.Contributors(ctx, track.ID)
		lyrics, _ := r.source.Lyrics(ctx, track.ID)

		var stream *model.Stream
		if id.StreamSoundQuality != "" {
			stream = &model.Stream{TrackID: track.ID, SoundQuality: id.StreamSoundQuality}
		}
		if err := r.writer.Write(ctx, audio.WriteRequest{
			Track:        track,
			Album:        album,
			Stream:       stream,
			Path:         path,
			Contributors: contributors,
			Lyrics:       lyrics,
		}); err != nil {
			report.Failed++
			return nil
		}
		report.Refreshed++
		return nil
	})
	return report, err
}
