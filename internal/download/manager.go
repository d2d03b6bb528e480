package download

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/config"
	"github.com/handiism/tidal-downloader/internal/logging"
	"github.com/handiism/tidal-downloader/internal/model"
)

// Components bundles the collaborators a Manager wires together.
type Components struct {
	Catalog    Catalog
	Fetcher    Fetcher
	Decrypter  Decrypter
	Remuxer    Remuxer
	Transcoder Transcoder
	Tagger     Tagger
	Reader     QualityReader
	Covers     *audio.CoverCache
	Logger     *slog.Logger
}

// Summary counts what one Manager call did.
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     []ItemError
}

func (s *Summary) add(results []Result, failures []ItemError) {
	for _, r := range results {
		switch {
		case r.Err != nil:
		case r.Outcome.Skipped:
			s.Skipped++
		default:
			s.Downloaded++
		}
	}
	s.Failed = append(s.Failed, failures...)
}

// Manager coordinates track, album, playlist and video downloads.
type Manager struct {
	settings *config.Settings
	catalog  Catalog
	transfer *Transferer
	batch    *Batch
	progress reporter
	logger   *slog.Logger

	queuedFiles     atomic.Int32
	downloadedFiles atomic.Int32
	failedFiles     atomic.Int32
}

// countingTransferer bumps the Manager's counters as each item ends.
type countingTransferer struct {
	*Transferer
	m *Manager
}

func (c countingTransferer) Transfer(ctx context.Context, req Request) (Outcome, error) {
	outcome, err := c.Transferer.Transfer(ctx, req)
	c.m.count(err)
	return outcome, err
}

func (c countingTransferer) TransferVideo(ctx context.Context, video *model.Video, album *model.Album, playlist *model.Playlist, quiet bool) (string, error) {
	path, err := c.Transferer.TransferVideo(ctx, video, album, playlist, quiet)
	c.m.count(err)
	return path, err
}

func (m *Manager) count(err error) {
	if err != nil {
		m.failedFiles.Add(1)
	} else {
		m.downloadedFiles.Add(1)
	}
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, c Components, onProgress func(ProgressEvent)) *Manager {
	logger := c.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	paths := settings.ToPathConfig()

	gate := NewGate(settings.CheckExist, settings.AudioConvertFormat, c.Fetcher, c.Reader)
	transfer := NewTransferer(Deps{
		Streams:    c.Catalog,
		Fetcher:    c.Fetcher,
		Decrypter:  c.Decrypter,
		Remuxer:    c.Remuxer,
		Transcoder: c.Transcoder,
		Tagger:     c.Tagger,
		Gate:       gate,
		Paths:      paths,
		Logger:     logger,
	}, Options{
		Quality:       settings.AudioQuality,
		VideoQuality:  settings.VideoQuality,
		ConvertFormat: settings.AudioConvertFormat,
		LyricFile:     settings.LyricFile,
		ShowTrackInfo: settings.ShowTrackInfo,
		ShowProgress:  settings.ShowProgress,
		PartSize:      settings.PartSize,
	}, onProgress)

	m := &Manager{
		settings: settings,
		catalog:  c.Catalog,
		transfer: transfer,
		progress: onProgress,
		logger:   logger,
	}
	m.batch = NewBatch(countingTransferer{transfer, m}, c.Catalog, c.Covers, paths, BatchOptions{
		MultiThread:       settings.MultiThread,
		Concurrency:       settings.MaxConcurrentTracks,
		SaveCovers:        settings.SaveCovers,
		SaveAlbumInfo:     settings.SaveAlbumInfo,
		UsePlaylistFolder: settings.UsePlaylistFolder,
		CreatePlaylist:    settings.CreatePlaylist,
		PlaylistFormat:    settings.PlaylistFormat,
	}, logger, onProgress)
	return m
}

// Transferer exposes the single-item pipeline, e.g. for library sync.
func (m *Manager) Transferer() *Transferer {
	return m.transfer
}

// GetProgress returns how many items finished, failed and were queued
// so far. Skipped items count as finished.
func (m *Manager) GetProgress() (downloaded, failed, total int32) {
	return m.downloadedFiles.Load(), m.failedFiles.Load(), m.queuedFiles.Load()
}

// Track downloads a single track into its album folder.
func (m *Manager) Track(ctx context.Context, id string) (Summary, error) {
	track, err := m.catalog.Track(ctx, id)
	if err != nil {
		return Summary{}, fmt.Errorf("track %s: %w", id, err)
	}
	album, err := m.catalog.Album(ctx, track.Album.ID)
	if err != nil {
		return Summary{}, fmt.Errorf("album %s: %w", track.Album.ID, err)
	}
	if m.settings.SaveCovers {
		m.batch.SaveCover(ctx, album)
	}
	return m.run(ctx, []*model.Track{track}, nil, album, nil, 1), nil
}

// Album downloads every track and video of an album, starting at the
// 1-based startIndex.
func (m *Manager) Album(ctx context.Context, id string, startIndex int) (Summary, error) {
	album, err := m.catalog.Album(ctx, id)
	if err != nil {
		return Summary{}, fmt.Errorf("album %s: %w", id, err)
	}
	tracks, videos, err := m.catalog.AlbumItems(ctx, id)
	if err != nil {
		return Summary{}, fmt.Errorf("album %s items: %w", id, err)
	}
	m.progress.report(LevelInfo, "Found album: %s - %s (%d tracks)", album.ArtistName(), album.Title, len(tracks))

	if m.settings.SaveCovers {
		m.batch.SaveCover(ctx, album)
	}
	if m.settings.SaveAlbumInfo {
		if err := m.batch.SaveAlbumInfo(album, tracks); err != nil {
			m.logger.Warn("write album info", "album_id", album.ID, "error", err)
		}
	}
	return m.run(ctx, tracks, videos, album, nil, startIndex), nil
}

// Playlist downloads every item of a playlist, starting at the 1-based
// startIndex.
func (m *Manager) Playlist(ctx context.Context, uuid string, startIndex int) (Summary, error) {
	playlist, err := m.catalog.Playlist(ctx, uuid)
	if err != nil {
		return Summary{}, fmt.Errorf("playlist %s: %w", uuid, err)
	}
	tracks, videos, err := m.catalog.PlaylistItems(ctx, uuid)
	if err != nil {
		return Summary{}, fmt.Errorf("playlist %s items: %w", uuid, err)
	}
	m.progress.report(LevelInfo, "Found playlist: %s (%d tracks)", playlist.Title, len(tracks))
	return m.run(ctx, tracks, videos, nil, playlist, startIndex), nil
}

// Video downloads a single music video.
func (m *Manager) Video(ctx context.Context, id string) (Summary, error) {
	video, err := m.catalog.Video(ctx, id)
	if err != nil {
		return Summary{}, fmt.Errorf("video %s: %w", id, err)
	}
	var album *model.Album
	if video.Album != nil && video.Album.ID != "" {
		if a, err := m.catalog.Album(ctx, video.Album.ID); err == nil {
			album = a
		}
	}
	return m.run(ctx, nil, []*model.Video{video}, album, nil, 1), nil
}

func (m *Manager) run(ctx context.Context, tracks []*model.Track, videos []*model.Video, album *model.Album, playlist *model.Playlist, startIndex int) Summary {
	var summary Summary
	m.queuedFiles.Add(int32(max(len(tracks)-max(startIndex, 1)+1, 0) + len(videos)))
	failedBefore := m.failedFiles.Load()
	if len(tracks) > 0 {
		results, failures := m.batch.Tracks(ctx, tracks, album, playlist, startIndex)
		summary.add(results, failures)
	}
	if len(videos) > 0 {
		failures := m.batch.Videos(ctx, videos, album, playlist)
		summary.Downloaded += len(videos) - len(failures)
		summary.Failed = append(summary.Failed, failures...)
	}

	// Album lookup failures never reach the transferer.
	m.failedFiles.Store(failedBefore + int32(len(summary.Failed)))

	if len(summary.Failed) == 0 {
		m.progress.report(LevelSuccess, "Finished: %d downloaded, %d skipped", summary.Downloaded, summary.Skipped)
	} else {
		m.progress.report(LevelWarning, "Finished with errors: %d downloaded, %d skipped, %d failed", summary.Downloaded, summary.Skipped, len(summary.Failed))
	}
	return summary
}
