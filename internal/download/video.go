package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"

	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/model"
)

// ErrEmptyPlaylist is returned when an HLS playlist lists no segments.
var ErrEmptyPlaylist = errors.New("hls playlist has no segments")

// TransferVideo downloads a music video into its final .mp4 path and
// returns that path.
func (t *Transferer) TransferVideo(ctx context.Context, video *model.Video, album *model.Album, playlist *model.Playlist, quiet bool) (string, error) {
	say := t.progress
	if quiet {
		say = nil
	}

	vs, err := t.deps.Streams.VideoStreamURL(ctx, video.ID, t.opts.VideoQuality)
	if err != nil {
		return "", fmt.Errorf("resolve video stream: %w", err)
	}

	segments, err := t.resolveSegments(ctx, vs.M3U8URL, t.opts.VideoQuality.Height())
	if err != nil {
		return "", err
	}

	path := t.deps.Paths.VideoPath(video, album, playlist)
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	work, err := os.MkdirTemp("", "tidaldl-video-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(work)

	part := filepath.Join(work, "download.ts.part")
	if err := t.deps.Fetcher.DownloadParts(ctx, segments, part, t.opts.PartSize, nil); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	if err := ioutils.ReplaceFile(part, path); err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}

	say.report(LevelSuccess, "Downloaded: %s", filepath.Base(path))
	return path, nil
}

// resolveSegments follows a master playlist to its best variant and
// returns the absolute segment URLs of the media playlist.
func (t *Transferer) resolveSegments(ctx context.Context, playlistURL string, maxHeight int) ([]string, error) {
	for depth := 0; depth < 2; depth++ {
		data, err := t.deps.Fetcher.Get(ctx, playlistURL)
		if err != nil {
			return nil, fmt.Errorf("fetch playlist: %w", err)
		}
		pl, kind, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
		if err != nil {
			return nil, fmt.Errorf("decode playlist: %w", err)
		}

		switch kind {
		case m3u8.MASTER:
			variant := pickVariant(pl.(*m3u8.MasterPlaylist).Variants, maxHeight)
			if variant == nil {
				return nil, ErrEmptyPlaylist
			}
			playlistURL = resolveRef(playlistURL, variant.URI)
		case m3u8.MEDIA:
			var urls []string
			for _, seg := range pl.(*m3u8.MediaPlaylist).Segments {
				if seg == nil {
					continue
				}
				urls = append(urls, resolveRef(playlistURL, seg.URI))
			}
			if len(urls) == 0 {
				return nil, ErrEmptyPlaylist
			}
			return urls, nil
		}
	}
	return nil, errors.New("hls playlist nests too deep")
}

// pickVariant returns the tallest variant not above maxHeight, preferring
// higher bandwidth on ties. If every variant is taller, the shortest one
// wins.
func pickVariant(variants []*m3u8.Variant, maxHeight int) *m3u8.Variant {
	var best, smallest *m3u8.Variant
	bestHeight, smallestHeight := -1, 0
	for _, v := range variants {
		if v == nil {
			continue
		}
		h := variantHeight(v.Resolution)
		if smallest == nil || h < smallestHeight {
			smallest, smallestHeight = v, h
		}
		if maxHeight > 0 && h > maxHeight {
			continue
		}
		if h > bestHeight || (h == bestHeight && v.Bandwidth > best.Bandwidth) {
			best, bestHeight = v, h
		}
	}
	if best == nil {
		return smallest
	}
	return best
}

// variantHeight parses the height out of a "1920x1080" resolution.
func variantHeight(resolution string) int {
	_, h, ok := strings.Cut(resolution, "x")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(h)
	if err != nil {
		return 0
	}
	return n
}

func resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
