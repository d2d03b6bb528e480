package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/tidal-downloader/internal/audio"
	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/logging"
	"github.com/handiism/tidal-downloader/internal/model"
)

// DefaultConcurrency is the worker count used when none is configured.
const DefaultConcurrency = 5

// BatchOptions control how a list of items is processed.
type BatchOptions struct {
	MultiThread       bool
	Concurrency       int
	SaveCovers        bool
	SaveAlbumInfo     bool
	UsePlaylistFolder bool
	CreatePlaylist    bool
	PlaylistFormat    audio.PlaylistFormat
}

// ItemTransferer is the part of a Transferer a Batch needs.
type ItemTransferer interface {
	Transfer(ctx context.Context, req Request) (Outcome, error)
	TransferVideo(ctx context.Context, video *model.Video, album *model.Album, playlist *model.Playlist, quiet bool) (string, error)
}

// ItemError records one failed item of a batch. Index is 1-based.
type ItemError struct {
	Index int
	Title string
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%d. %s: %v", e.Index, e.Title, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Result is the outcome of one batch item, in submission order.
type Result struct {
	Track   *model.Track
	Outcome Outcome
	Err     error
}

// Batch drives a Transferer over album and playlist item lists.
type Batch struct {
	transfer ItemTransferer
	albums   AlbumSource
	covers   *audio.CoverCache
	paths    *model.PathConfig
	opts     BatchOptions
	progress reporter
	logger   *slog.Logger
}

// NewBatch creates a Batch. covers may be nil when covers are not saved.
func NewBatch(transfer ItemTransferer, albums AlbumSource, covers *audio.CoverCache, paths *model.PathConfig, opts BatchOptions, logger *slog.Logger, onProgress func(ProgressEvent)) *Batch {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Batch{
		transfer: transfer,
		albums:   albums,
		covers:   covers,
		paths:    paths,
		opts:     opts,
		progress: onProgress,
		logger:   logger,
	}
}

// Tracks transfers tracks[startIndex-1:].
//
// When album is nil, as for playlists, each track's album is looked up
// first and the track's playlist position is recorded; a failed lookup
// skips that track and counts as its failure. In multi-thread mode up to
// Concurrency transfers run at once and per-item console output is
// suppressed, but results still come back in submission order. A failing
// item never stops the others.
//
// Parameters:
//   - tracks: the full item list; startIndex is 1-based into it
//   - album: the shared album, or nil to resolve per track
//   - playlist: set for playlist batches, enables the playlist file
//
// Returns one Result per transferred position and the failures with
// their 1-based index in tracks.
//
// Example:
//
//	results, failures := batch.Tracks(ctx, items, nil, playlist, 1)
//	for _, f := range failures {
//	    log.Warn("item failed", "index", f.Index, "error", f.Err)
//	}
func (b *Batch) Tracks(ctx context.Context, tracks []*model.Track, album *model.Album, playlist *model.Playlist, startIndex int) ([]Result, []ItemError) {
	if startIndex < 1 {
		startIndex = 1
	}
	if startIndex > len(tracks) {
		return nil, nil
	}
	items := tracks[startIndex-1:]
	results := make([]Result, len(items))
	parallel := b.opts.MultiThread && len(items) > 1

	g, gctx := errgroup.WithContext(ctx)
	if parallel {
		g.SetLimit(b.opts.Concurrency)
	} else {
		g.SetLimit(1)
	}

	for i, track := range items {
		index := startIndex + i
		req := Request{Track: track, Album: album, Playlist: playlist, Quiet: parallel}
		if album == nil {
			resolved, err := b.albums.Album(ctx, track.Album.ID)
			if err != nil {
				results[i] = Result{Track: track, Err: fmt.Errorf("album lookup: %w", err)}
				b.progress.report(LevelError, "Skipping %s: album lookup failed: %v", track.Title, err)
				b.logger.Warn("album lookup failed", "track_id", track.ID, "album_id", track.Album.ID, "error", err)
				continue
			}
			req.Album = resolved
			track.TrackNumberOnPlaylist = index
			if b.opts.SaveCovers && !b.opts.UsePlaylistFolder {
				b.SaveCover(ctx, resolved)
			}
		}

		g.Go(func() error {
			outcome, err := b.transfer.Transfer(gctx, req)
			results[i] = Result{Track: track, Outcome: outcome, Err: err}
			if err != nil {
				b.progress.report(LevelError, "Error downloading %s: %v", track.Title, err)
			}
			// Item failures are collected, never propagated.
			return nil
		})
	}
	_ = g.Wait()

	var failures []ItemError
	for i, r := range results {
		if r.Err != nil {
			failures = append(failures, ItemError{Index: startIndex + i, Title: r.Track.Title, Err: r.Err})
		}
	}
	b.summarize(failures)

	if playlist != nil && b.opts.CreatePlaylist {
		b.writePlaylist(playlist, results)
	}
	return results, failures
}

// Videos transfers videos one at a time.
func (b *Batch) Videos(ctx context.Context, videos []*model.Video, album *model.Album, playlist *model.Playlist) []ItemError {
	var failures []ItemError
	for i, video := range videos {
		if _, err := b.transfer.TransferVideo(ctx, video, album, playlist, false); err != nil {
			b.progress.report(LevelError, "Error downloading %s: %v", video.Title, err)
			failures = append(failures, ItemError{Index: i + 1, Title: video.Title, Err: err})
		}
	}
	b.summarize(failures)
	return failures
}

func (b *Batch) summarize(failures []ItemError) {
	if len(failures) == 0 {
		return
	}
	b.progress.report(LevelWarning, "Download errors summary:")
	for _, f := range failures {
		b.progress.report(LevelWarning, "  %s", f.Error())
	}
}

// SaveCover writes the album cover as cover.jpg into the album folder.
// Failures are logged only.
func (b *Batch) SaveCover(ctx context.Context, album *model.Album) {
	if b.covers == nil || album == nil || !album.HasCover() {
		return
	}
	data, err := b.covers.Get(ctx, album.Cover)
	if err != nil {
		b.logger.Warn("fetch cover", "album_id", album.ID, "error", err)
		return
	}
	dir := b.paths.AlbumPath(album)
	if err := ioutils.EnsureDir(dir); err != nil {
		b.logger.Warn("create album folder", "path", dir, "error", err)
		return
	}
	if err := ioutils.WriteFileAtomic(filepath.Join(dir, "cover.jpg"), data, 0o644); err != nil {
		b.logger.Warn("write cover", "album_id", album.ID, "error", err)
	}
}

// SaveAlbumInfo writes AlbumInfo.txt into the album folder.
func (b *Batch) SaveAlbumInfo(album *model.Album, tracks []*model.Track) error {
	dir := b.paths.AlbumPath(album)
	if err := ioutils.EnsureDir(dir); err != nil {
		return err
	}
	return ioutils.WriteFileAtomic(filepath.Join(dir, "AlbumInfo.txt"), []byte(AlbumInfo(album, tracks)), 0o644)
}

// AlbumInfo renders the plain-text album summary.
func AlbumInfo(album *model.Album, tracks []*model.Track) string {
	var sb strings.Builder
	release := ""
	if !album.ReleaseDate.IsZero() {
		release = album.ReleaseDate.Format("2006-01-02")
	}
	fmt.Fprintf(&sb, "[ID]          %s\n", album.ID)
	fmt.Fprintf(&sb, "[Title]       %s\n", album.Title)
	fmt.Fprintf(&sb, "[Artists]     %s\n", model.ArtistNames(album.Artists))
	fmt.Fprintf(&sb, "[ReleaseDate] %s\n", release)
	fmt.Fprintf(&sb, "[SongNum]     %d\n", album.NumberOfTracks)
	fmt.Fprintf(&sb, "[Duration]    %d\n", album.Duration)
	sb.WriteString("\n")

	volumes := max(album.NumberOfVolumes, 1)
	for vol := 1; vol <= volumes; vol++ {
		fmt.Fprintf(&sb, "===========CD %d=============\n", vol)
		for _, t := range tracks {
			if max(t.VolumeNumber, 1) != vol {
				continue
			}
			fmt.Fprintf(&sb, "%-8s%s\n", fmt.Sprintf("[%d]", t.TrackNumber), t.FullTitle())
		}
	}
	return sb.String()
}

func (b *Batch) writePlaylist(playlist *model.Playlist, results []Result) {
	var entries []audio.PlaylistEntry
	for _, r := range results {
		if r.Err != nil || r.Outcome.Path == "" {
			continue
		}
		entries = append(entries, audio.PlaylistEntry{
			Path:     r.Outcome.Path,
			Title:    r.Track.FullTitle(),
			Artist:   r.Track.ArtistName(),
			Duration: r.Track.Duration,
		})
	}
	if len(entries) == 0 {
		return
	}

	creator := audio.NewPlaylistCreator(b.opts.PlaylistFormat)
	dir := b.paths.DownloadPath
	if b.opts.UsePlaylistFolder {
		dir = b.paths.PlaylistPath(playlist)
	}
	target := filepath.Join(dir, creator.FileName(model.SanitizeFileName(playlist.Title)))
	content := creator.CreatePlaylist(target, playlist.Title, entries)
	if err := ioutils.WriteFileAtomic(target, []byte(content), 0o644); err != nil {
		b.progress.report(LevelWarning, "Error creating playlist: %v", err)
		return
	}
	b.progress.report(LevelSuccess, "Created playlist for %s", playlist.Title)
}
