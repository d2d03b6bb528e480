package download

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/quality"
)

type fakeStreams struct {
	stream    *model.Stream
	streamErr error
	video     *model.VideoStream
	lyrics    *model.Lyrics
}

func (f *fakeStreams) StreamURL(ctx context.Context, trackID string, q quality.Setting) (*model.Stream, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	s := *f.stream
	return &s, nil
}

func (f *fakeStreams) VideoStreamURL(ctx context.Context, videoID string, q quality.VideoSetting) (*model.VideoStream, error) {
	if f.video == nil {
		return nil, errors.New("no video")
	}
	return f.video, nil
}

func (f *fakeStreams) Contributors(ctx context.Context, trackID string) ([]model.Contributor, error) {
	return []model.Contributor{{Name: "Writer", Role: "Composer"}}, nil
}

func (f *fakeStreams) Lyrics(ctx context.Context, trackID string) (*model.Lyrics, error) {
	if f.lyrics == nil {
		return nil, errors.New("no lyrics")
	}
	return f.lyrics, nil
}

type fakeFetcher struct {
	payload map[string][]byte
	size    int64
	sizeErr error

	mu        sync.Mutex
	downloads int
}

func (f *fakeFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	data, ok := f.payload[url]
	if !ok {
		return nil, errors.New("404 " + url)
	}
	return data, nil
}

func (f *fakeFetcher) GetFileSize(ctx context.Context, url string) (int64, error) {
	return f.size, f.sizeErr
}

func (f *fakeFetcher) DownloadParts(ctx context.Context, urls []string, destPath string, partSize int, onProgress func(written, total int64)) error {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()

	var buf bytes.Buffer
	for _, u := range urls {
		data, ok := f.payload[u]
		if !ok {
			return errors.New("404 " + u)
		}
		buf.Write(data)
	}
	return os.WriteFile(destPath, buf.Bytes(), 0o644)
}

func (f *fakeFetcher) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

// prefixCopy writes src to dst with a marker prepended.
func prefixCopy(src, dst, marker string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, append([]byte(marker), data...), 0o644)
}

type fakeDecrypter struct{}

func (fakeDecrypter) DecryptToken(token string) ([]byte, []byte, error) {
	if token != "wrapped" {
		return nil, nil, errors.New("bad token")
	}
	return []byte("key"), []byte("nonce"), nil
}

func (fakeDecrypter) DecryptFile(src, dst string, key, nonce []byte) error {
	return prefixCopy(src, dst, "PLAIN:")
}

type fakeRemuxer struct {
	available bool
	err       error
	calls     int
}

func (f *fakeRemuxer) Available() bool { return f.available }

func (f *fakeRemuxer) Remux(ctx context.Context, src, dst string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "fake", prefixCopy(src, dst, "REMUXED:")
}

type fakeTranscoder struct {
	err error
}

func (f *fakeTranscoder) Transcode(ctx context.Context, src, dst, format string) error {
	if f.err != nil {
		return f.err
	}
	return prefixCopy(src, dst, format+":")
}

type fakeTagger struct {
	mu   sync.Mutex
	reqs []audio.WriteRequest
}

func (f *fakeTagger) Write(ctx context.Context, req audio.WriteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return errors.New("tags are best-effort")
}

type fakeReader struct {
	quality string
	err     error
}

func (f fakeReader) ReadQuality(path string) (string, error) {
	return f.quality, f.err
}

func testPaths(t *testing.T) *model.PathConfig {
	t.Helper()
	return &model.PathConfig{
		DownloadPath:         t.TempDir(),
		AlbumFolderFormat:    "{ArtistName}/{AlbumTitle}",
		PlaylistFolderFormat: "Playlist/{PlaylistName}",
		TrackFileFormat:      "{TrackNumber} - {TrackTitle}",
		VideoFileFormat:      "{VideoNumber} - {ArtistName} - {VideoTitle}",
	}
}

func testAlbum() *model.Album {
	return &model.Album{
		ID:              "10",
		Title:           "Record",
		Artists:         []model.Artist{{Name: "Artist"}},
		NumberOfTracks:  2,
		NumberOfVolumes: 1,
	}
}

func testTrack(id, title string, number int) *model.Track {
	return &model.Track{
		ID:           id,
		Title:        title,
		TrackNumber:  number,
		VolumeNumber: 1,
		Artists:      []model.Artist{{Name: "Artist"}},
		Album:        model.AlbumRef{ID: "10", Title: "Record"},
	}
}

// isolateTemp points the process temp dir at a fresh directory so a
// test can check that workspaces are cleaned up.
func isolateTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	return dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	for _, e := range entries {
		t.Errorf("leftover in %s: %s", dir, e.Name())
	}
}

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", filepath.Base(path), err)
	}
	return string(data)
}
