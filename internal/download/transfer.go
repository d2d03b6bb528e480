package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/handiism/tidal-downloader/internal/audio"
	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/logging"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/quality"
)

// Options are the per-run transfer settings.
type Options struct {
	Quality       quality.Setting
	VideoQuality  quality.VideoSetting
	ConvertFormat string
	LyricFile     bool
	ShowTrackInfo bool
	ShowProgress  bool
	PartSize      int
}

// Deps are the collaborators a Transferer drives.
type Deps struct {
	Streams    StreamSource
	Fetcher    Fetcher
	Decrypter  Decrypter
	Remuxer    Remuxer
	Transcoder Transcoder
	Tagger     Tagger
	Gate       *Gate
	Paths      *model.PathConfig
	Logger     *slog.Logger
}

// Request describes one track transfer.
type Request struct {
	Track    *model.Track
	Album    *model.Album
	Playlist *model.Playlist
	// Progress receives byte counts while segments download.
	Progress func(written, total int64)
	// PartSize overrides Options.PartSize when positive.
	PartSize int
	// BaseOverride places the file directly in this folder.
	BaseOverride      string
	DisableExistCheck bool
	// Quiet suppresses per-item console events.
	Quiet bool
}

// Outcome is the result of a track transfer. Path is the published
// file, or the file that satisfied the gate when Skipped is set. On
// failures after stream resolution Stream is still set and Path names
// the intended destination.
type Outcome struct {
	Stream  *model.Stream
	Path    string
	Skipped bool
}

// Transferer downloads, decrypts, remuxes, transcodes, publishes and tags
// single tracks and videos.
type Transferer struct {
	deps     Deps
	opts     Options
	progress reporter
	logger   *slog.Logger
}

// NewTransferer creates a Transferer. onProgress may be nil.
func NewTransferer(deps Deps, opts Options, onProgress func(ProgressEvent)) *Transferer {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.PartSize <= 0 {
		opts.PartSize = 1 << 20
	}
	return &Transferer{deps: deps, opts: opts, progress: onProgress, logger: logger}
}

// Transfer runs the whole pipeline for one track.
//
// The file only appears at its final path once it is complete. Metadata
// extras (contributors, lyrics) and tagging are best-effort: their
// failures are logged and never fail the transfer.
func (t *Transferer) Transfer(ctx context.Context, req Request) (Outcome, error) {
	track := req.Track
	say := t.progress
	if req.Quiet {
		say = nil
	}
	log := t.logger.With("track_id", track.ID, "title", track.Title)

	stream, err := t.deps.Streams.StreamURL(ctx, track.ID, t.opts.Quality)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve stream: %w", err)
	}
	if t.opts.ShowTrackInfo {
		say.report(LevelVerbose, "[%s] %s - %s (%s, %s)", track.ID, track.ArtistName(), track.FullTitle(), stream.SoundQuality, stream.Codec)
	}

	downloadExt := stream.ContainerExtension()
	finalExt := model.TrackExtension(t.opts.ConvertFormat, stream)
	remux := model.NeedsFLACRemux(downloadExt, finalExt, stream)
	if remux && (t.deps.Remuxer == nil || !t.deps.Remuxer.Available()) {
		log.Warn("no remux backend, keeping native container", "ext", downloadExt)
		remux = false
		if t.opts.ConvertFormat == "" {
			finalExt = downloadExt
		}
	}
	path := t.deps.Paths.TrackPath(track, req.Album, req.Playlist, finalExt, req.BaseOverride)

	if !req.DisableExistCheck && t.deps.Gate != nil && t.deps.Gate.ShouldSkip(ctx, path, remoteURL(stream), stream) {
		say.report(LevelInfo, "Skipping existing: %s", filepath.Base(path))
		return Outcome{Stream: stream, Path: path, Skipped: true}, nil
	}

	failed := Outcome{Stream: stream, Path: path}
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return failed, err
	}
	work, err := os.MkdirTemp("", "tidaldl-track-")
	if err != nil {
		return failed, err
	}
	defer os.RemoveAll(work)

	partSize := t.opts.PartSize
	if req.PartSize > 0 {
		partSize = req.PartSize
	}
	urls := stream.SegmentURLs()
	onBytes := req.Progress
	if onBytes == nil && t.opts.ShowProgress && len(urls) == 1 {
		onBytes = say.bytes(filepath.Base(path))
	}
	raw := filepath.Join(work, "download"+downloadExt+".part")
	if err := t.deps.Fetcher.DownloadParts(ctx, urls, raw, partSize, onBytes); err != nil {
		return failed, fmt.Errorf("download: %w", err)
	}

	current := filepath.Join(work, "decrypted"+downloadExt)
	if stream.Encrypted() {
		if t.deps.Decrypter == nil {
			return failed, errors.New("stream is encrypted and no decrypter is configured")
		}
		key, nonce, err := t.deps.Decrypter.DecryptToken(stream.EncryptionKey)
		if err != nil {
			return failed, fmt.Errorf("decrypt key: %w", err)
		}
		if err := t.deps.Decrypter.DecryptFile(raw, current, key, nonce); err != nil {
			return failed, fmt.Errorf("decrypt: %w", err)
		}
		_ = os.Remove(raw)
	} else if err := os.Rename(raw, current); err != nil {
		return failed, err
	}

	if remux {
		remuxed := filepath.Join(work, "remux.flac")
		backend, err := t.deps.Remuxer.Remux(ctx, current, remuxed)
		if err != nil {
			log.Warn("remux failed, keeping native container", "error", err)
			if t.opts.ConvertFormat == "" {
				path = swapExt(path, downloadExt)
			}
		} else {
			log.Debug("remuxed", "backend", backend)
			_ = os.Remove(current)
			current = remuxed
		}
	}

	if t.opts.ConvertFormat != "" {
		converted := filepath.Join(work, "converted"+filepath.Ext(path))
		if t.deps.Transcoder == nil {
			return failed, fmt.Errorf("convert to %s: no transcoder configured", t.opts.ConvertFormat)
		}
		if err := t.deps.Transcoder.Transcode(ctx, current, converted, t.opts.ConvertFormat); err != nil {
			return failed, fmt.Errorf("convert to %s: %w", t.opts.ConvertFormat, err)
		}
		current = converted
	}

	if err := ioutils.ReplaceFile(current, path); err != nil {
		failed.Path = path
		return failed, fmt.Errorf("publish: %w", err)
	}

	t.decorate(ctx, log, req, stream, path)

	say.report(LevelSuccess, "Downloaded: %s", filepath.Base(path))
	return Outcome{Stream: stream, Path: path}, nil
}

// decorate fetches the extras and tags the published file.
func (t *Transferer) decorate(ctx context.Context, log *slog.Logger, req Request, stream *model.Stream, path string) {
	contributors, err := t.deps.Streams.Contributors(ctx, req.Track.ID)
	if err != nil {
		log.Debug("contributors unavailable", "error", err)
	}
	lyrics, err := t.deps.Streams.Lyrics(ctx, req.Track.ID)
	if err != nil {
		log.Debug("lyrics unavailable", "error", err)
	}

	if t.opts.LyricFile && lyrics != nil && lyrics.Subtitles != "" {
		lrc := swapExt(path, ".lrc")
		if err := ioutils.WriteFileAtomic(lrc, []byte(lyrics.Subtitles), 0o644); err != nil {
			log.Warn("write lyric file", "error", err)
		}
	}

	if t.deps.Tagger == nil {
		return
	}
	// Tagging errors are already logged by the tagger.
	_ = t.deps.Tagger.Write(ctx, audio.WriteRequest{
		Track:        req.Track,
		Album:        req.Album,
		Stream:       stream,
		Path:         path,
		Contributors: contributors,
		Lyrics:       lyrics,
	})
}

// remoteURL is the URL whose size stands for the whole payload: the
// single stream URL, or the first segment when there is none.
func remoteURL(stream *model.Stream) string {
	if stream.URL != "" {
		return stream.URL
	}
	if urls := stream.SegmentURLs(); len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
