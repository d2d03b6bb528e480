package download

import (
	"context"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/quality"
)

// StreamSource resolves streams and per-track extras.
type StreamSource interface {
	StreamURL(ctx context.Context, trackID string, q quality.Setting) (*model.Stream, error)
	VideoStreamURL(ctx context.Context, videoID string, q quality.VideoSetting) (*model.VideoStream, error)
	Contributors(ctx context.Context, trackID string) ([]model.Contributor, error)
	Lyrics(ctx context.Context, trackID string) (*model.Lyrics, error)
}

// AlbumSource resolves the album context of an item.
type AlbumSource interface {
	Album(ctx context.Context, id string) (*model.Album, error)
}

// Catalog is everything the Manager needs from the catalog.
type Catalog interface {
	StreamSource
	AlbumSource
	Track(ctx context.Context, id string) (*model.Track, error)
	Video(ctx context.Context, id string) (*model.Video, error)
	Playlist(ctx context.Context, uuid string) (*model.Playlist, error)
	AlbumItems(ctx context.Context, id string) ([]*model.Track, []*model.Video, error)
	PlaylistItems(ctx context.Context, uuid string) ([]*model.Track, []*model.Video, error)
}

// Fetcher moves bytes over the network.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetFileSize(ctx context.Context, url string) (int64, error)
	DownloadParts(ctx context.Context, urls []string, destPath string, partSize int, onProgress func(written, total int64)) error
}

// Decrypter unwraps a stream key token and decrypts a file with it.
type Decrypter interface {
	DecryptToken(token string) (key, nonce []byte, err error)
	DecryptFile(src, dst string, key, nonce []byte) error
}

// Remuxer is an ordered chain of remux backends.
type Remuxer interface {
	Available() bool
	Remux(ctx context.Context, src, dst string) (backend string, err error)
}

// Transcoder converts audio to a configured target format.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst, format string) error
}

// Tagger writes metadata onto a published file.
type Tagger interface {
	Write(ctx context.Context, req audio.WriteRequest) error
}

// QualityReader reads the recorded quality of a published file.
type QualityReader interface {
	ReadQuality(path string) (string, error)
}
