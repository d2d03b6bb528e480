// Package app wires settings into the concrete collaborators shared by
// the command line and terminal front ends.
package app

import (
	"fmt"
	"log/slog"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/catalog"
	"github.com/handiism/tidal-downloader/internal/config"
	"github.com/handiism/tidal-downloader/internal/crypt"
	"github.com/handiism/tidal-downloader/internal/download"
	transport "github.com/handiism/tidal-downloader/internal/http"
	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/library"
	"github.com/handiism/tidal-downloader/internal/likes"
	"github.com/handiism/tidal-downloader/internal/logging"
	"github.com/handiism/tidal-downloader/internal/media"
)

// coverQuality is the JPEG quality of resized embedded covers.
const coverQuality = 90

// App holds everything built from one Settings value.
type App struct {
	Settings *config.Settings
	Logger   *slog.Logger
	HTTP     *transport.Client
	Catalog  *catalog.Client
	Tagger   *audio.Tagger
	Reader   *audio.Reader
	Manager  *download.Manager
}

// New builds the application. onProgress receives user-facing progress
// events and may be nil.
func New(settings *config.Settings, logger *slog.Logger, onProgress func(download.ProgressEvent)) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	httpClient := transport.NewClient(settings.ToHTTPOptions())
	client, err := catalog.NewClient(httpClient, catalog.Options{
		BaseURL:     settings.CatalogBaseURL,
		AccessToken: settings.AccessToken,
		CountryCode: settings.CountryCode,
		UserID:      settings.UserID,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	decrypter, err := crypt.NewAES(settings.DecryptionKey)
	if err != nil {
		return nil, err
	}

	ffmpeg := media.NewFFmpeg(settings.FFmpegPath)
	if !ffmpeg.Available() {
		logger.Debug("ffmpeg unavailable", "detail", ffmpeg.Detail())
	}
	remuxer, err := RemuxChain(settings.RemuxBackends, ffmpeg)
	if err != nil {
		return nil, err
	}

	covers := audio.NewCoverCache(httpClient, catalog.CoverURL)
	if settings.CoverArtInTagsResize {
		covers.WithResize(ioutils.NewImageService(coverQuality), settings.CoverArtInTagsMaxSize)
	}
	tagger := audio.NewTagger(covers, logger)
	reader := audio.NewReader()

	manager := download.NewManager(settings, download.Components{
		Catalog:    client,
		Fetcher:    httpClient,
		Decrypter:  decrypter,
		Remuxer:    remuxer,
		Transcoder: ffmpeg,
		Tagger:     tagger,
		Reader:     reader,
		Covers:     covers,
		Logger:     logger,
	}, onProgress)

	return &App{
		Settings: settings,
		Logger:   logger,
		HTTP:     httpClient,
		Catalog:  client,
		Tagger:   tagger,
		Reader:   reader,
		Manager:  manager,
	}, nil
}

// RemuxChain orders the configured remux backends. "mp4" is the
// in-process FLAC extractor, "ffmpeg" the external binary.
func RemuxChain(names []string, ffmpeg *media.FFmpeg) (*media.Chain, error) {
	backends := make([]media.Remuxer, 0, len(names))
	for _, name := range names {
		switch name {
		case "mp4":
			backends = append(backends, media.NewMP4FLAC())
		case "ffmpeg":
			backends = append(backends, ffmpeg)
		default:
			return nil, fmt.Errorf("unknown remux backend %q", name)
		}
	}
	return media.NewChain(backends...), nil
}

// Reconciler builds the liked-library reconciler rooted at root, or at
// the configured liked tracks path when root is empty.
func (a *App) Reconciler(root string) (*library.Reconciler, error) {
	if root == "" {
		root = a.Settings.LikedTracksPath
	}
	return library.New(a.Catalog, a.Manager.Transferer(), a.Reader, library.Options{
		Root:    root,
		Quality: a.Settings.AudioQuality,
		Logger:  a.Logger,
	})
}

// Refresher builds the tag refresher.
func (a *App) Refresher() *library.Refresher {
	return library.NewRefresher(a.Catalog, a.Reader, a.Tagger, a.Logger)
}

// Likes builds the liked-songs playlist service.
func (a *App) Likes() *likes.Service {
	return likes.NewService(a.Catalog, a.Logger, nil)
}
