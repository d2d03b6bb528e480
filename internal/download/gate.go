package download

import (
	"context"

	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/quality"
)

// RemoteSizer reports the size of a remote resource.
type RemoteSizer interface {
	GetFileSize(ctx context.Context, url string) (int64, error)
}

// Gate decides whether a track already on disk is good enough to keep.
type Gate struct {
	enabled       bool
	convertFormat string
	sizer         RemoteSizer
	reader        QualityReader
}

// NewGate creates a Gate. A disabled gate never skips.
func NewGate(enabled bool, convertFormat string, sizer RemoteSizer, reader QualityReader) *Gate {
	return &Gate{
		enabled:       enabled,
		convertFormat: convertFormat,
		sizer:         sizer,
		reader:        reader,
	}
}

// ShouldSkip reports whether the file at finalPath satisfies the stream
// about to be transferred.
//
// Rules, in order:
//   - a disabled gate, a missing file or an empty file never satisfies
//   - without a conversion format the local size is compared to the size
//     of remoteURL; a smaller local file is a partial one and never
//     satisfies. When the remote size cannot be learned the comparison
//     is left out
//   - with no stream descriptor the size check is the whole decision
//   - otherwise the local quality tag must rank at least as high as the
//     stream's; a missing or unknown tag never satisfies
//
// Parameters:
//   - finalPath: where the transfer would publish the file
//   - remoteURL: the payload URL used for the size check, may be empty
//   - stream: the resolved descriptor, or nil for a size-only check
//
// Example:
//
//	if gate.ShouldSkip(ctx, path, stream.URL, stream) {
//	    return Outcome{Stream: stream, Path: path, Skipped: true}, nil
//	}
func (g *Gate) ShouldSkip(ctx context.Context, finalPath, remoteURL string, stream *model.Stream) bool {
	if !g.enabled {
		return false
	}
	local := ioutils.FileSize(finalPath)
	if local <= 0 {
		return false
	}

	if g.convertFormat == "" && remoteURL != "" && g.sizer != nil {
		remote, err := g.sizer.GetFileSize(ctx, remoteURL)
		if err == nil && remote > 0 && local < remote {
			return false
		}
	}

	if stream == nil {
		return true
	}

	label, err := g.reader.ReadQuality(finalPath)
	if err != nil || label == "" {
		return false
	}
	localRank := quality.Rank(label)
	if localRank < 0 {
		return false
	}
	return localRank >= quality.Rank(stream.SoundQuality)
}
