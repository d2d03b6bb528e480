package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/handiism/tidal-downloader/internal/logging"
)

// Tagger writes catalog metadata onto published files.
//
// Tagger dispatches on the file extension:
//   - .flac: Vorbis comments with the baseline, identity and extended set
//   - .mp3: ID3v2 frames, identity in TXXX frames
//   - .m4a/.mp4: iTunes atoms, identity in freeform atoms
//   - .wav: an ID3v2 tag in an "id3 " RIFF chunk, laid out like .mp3
//
// Any other container is left untouched. Write never fails the caller:
// every problem is logged and swallowed, since a file with incomplete
// tags is still a usable download.
//
// Example:
//
//	tagger := audio.NewTagger(covers, logger)
//
//	// After the file is published
//	tagger.Write(ctx, audio.WriteRequest{
//	    Track:  track,
//	    Album:  album,
//	    Stream: stream,
//	    Path:   finalPath,
//	})
type Tagger struct {
	covers *CoverCache
	logger *slog.Logger
}

// NewTagger creates a Tagger. covers may be nil to skip embedded art.
func NewTagger(covers *CoverCache, logger *slog.Logger) *Tagger {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Tagger{covers: covers, logger: logger}
}

// Write tags req.Path. It returns the error it logged, for callers that
// want to count metadata failures; callers must not fail the item on it.
func (t *Tagger) Write(ctx context.Context, req WriteRequest) error {
	if req.Track == nil {
		return nil
	}
	logger := t.logger.With("track_id", req.Track.ID, "path", req.Path)

	fields := BuildFields(req)
	if t.covers != nil {
		coverID := req.Track.Album.Cover
		if coverID == "" && req.Album != nil {
			coverID = req.Album.Cover
		}
		cover, err := t.covers.Get(ctx, coverID)
		if err != nil {
			logger.Warn("cover fetch failed", "error", err)
		}
		fields.Cover = cover
	}

	var err error
	switch containerOf(req.Path) {
	case containerFLAC:
		err = writeFLAC(req.Path, fields)
	case containerMP3:
		err = writeMP3(req.Path, fields)
	case containerMP4:
		err = writeMP4(req.Path, fields)
	case containerWAV:
		err = writeWAV(req.Path, fields)
	default:
		logger.Info("container cannot carry tags, file is untracked", "ext", filepath.Ext(req.Path))
		return nil
	}
	if err != nil {
		err = fmt.Errorf("write tags: %w", err)
		logger.Warn("metadata write failed", "error", err)
		return err
	}
	logger.Debug("metadata written", "ext", filepath.Ext(req.Path))
	return nil
}
