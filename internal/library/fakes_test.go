package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/download"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/quality"
)

// Test files hold "id|title|artist|quality" instead of real tags, so
// identity survives moves and renames.
func writeTagged(t *testing.T, path, id, title, artist, q string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	content := strings.Join([]string{id, title, artist, q}, "|")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

type contentReader struct {
	mu           sync.Mutex
	qualityReads int
}

func parseContent(path string) (audio.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return audio.Identity{}, err
	}
	parts := strings.Split(string(data), "|")
	if len(parts) != 4 {
		return audio.Identity{}, audio.ErrNoIdentity
	}
	return audio.Identity{TrackID: parts[0], Title: parts[1], Artist: parts[2], StreamSoundQuality: parts[3]}, nil
}

func (r *contentReader) ReadIdentity(path string) (audio.Identity, error) {
	return parseContent(path)
}

func (r *contentReader) ReadTrackID(path string) (string, error) {
	id, err := parseContent(path)
	if err != nil {
		return "", err
	}
	if id.TrackID == "" {
		return "", audio.ErrNoIdentity
	}
	return id.TrackID, nil
}

func (r *contentReader) ReadQuality(path string) (string, error) {
	r.mu.Lock()
	r.qualityReads++
	r.mu.Unlock()
	id, err := parseContent(path)
	if err != nil {
		return "", err
	}
	return id.Quality(), nil
}

func (r *contentReader) reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.qualityReads
}

type fakeCatalog struct {
	liked    []string
	tracks   map[string]*model.Track
	streamQ  map[string]string
	failFav  error
	streamed []string
}

func newCatalog(liked ...string) *fakeCatalog {
	c := &fakeCatalog{liked: liked, tracks: map[string]*model.Track{}, streamQ: map[string]string{}}
	for _, id := range []string{"A", "B", "C"} {
		c.tracks[id] = &model.Track{
			ID:          id,
			Title:       "Title " + id,
			TrackNumber: 1,
			Artists:     []model.Artist{{Name: "Artist"}},
			Album:       model.AlbumRef{ID: "alb-" + id, Title: "Record"},
		}
		c.streamQ[id] = quality.Lossless
	}
	return c
}

func (c *fakeCatalog) FavoriteTracks(ctx context.Context) ([]*model.Track, error) {
	if c.failFav != nil {
		return nil, c.failFav
	}
	var out []*model.Track
	for _, id := range c.liked {
		out = append(out, c.tracks[id])
	}
	return out, nil
}

func (c *fakeCatalog) Track(ctx context.Context, id string) (*model.Track, error) {
	t, ok := c.tracks[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return t, nil
}

func (c *fakeCatalog) Album(ctx context.Context, id string) (*model.Album, error) {
	return &model.Album{ID: id, Title: "Record", Artists: []model.Artist{{Name: "Artist"}}}, nil
}

func (c *fakeCatalog) StreamURL(ctx context.Context, trackID string, q quality.Setting) (*model.Stream, error) {
	c.streamed = append(c.streamed, trackID)
	return &model.Stream{TrackID: trackID, SoundQuality: c.streamQ[trackID]}, nil
}

func (c *fakeCatalog) Contributors(ctx context.Context, trackID string) ([]model.Contributor, error) {
	return nil, errors.New("none")
}

func (c *fakeCatalog) Lyrics(ctx context.Context, trackID string) (*model.Lyrics, error) {
	return nil, errors.New("none")
}

// fakeTransferer publishes into an album-style nested folder, the way
// path templating would, so normalization has something to flatten.
type fakeTransferer struct {
	t       *testing.T
	catalog *fakeCatalog
	fail    map[string]bool
	calls   []download.Request
}

func (f *fakeTransferer) Transfer(ctx context.Context, req download.Request) (download.Outcome, error) {
	f.calls = append(f.calls, req)
	id := req.Track.ID
	if f.fail[id] {
		return download.Outcome{}, errors.New("boom")
	}
	path := filepath.Join(req.BaseOverride, "Artist", "Record", "01 - "+req.Track.Title+".flac")
	writeTagged(f.t, path, id, req.Track.Title, req.Track.ArtistName(), f.catalog.streamQ[id])
	return download.Outcome{Path: path, Stream: &model.Stream{SoundQuality: f.catalog.streamQ[id]}}, nil
}

type fixture struct {
	root     string
	catalog  *fakeCatalog
	transfer *fakeTransferer
	reader   *contentReader
	rec      *Reconciler
}

func newFixture(t *testing.T, setting quality.Setting, liked ...string) *fixture {
	t.Helper()
	f := &fixture{root: t.TempDir(), catalog: newCatalog(liked...), reader: &contentReader{}}
	f.transfer = &fakeTransferer{t: t, catalog: f.catalog, fail: map[string]bool{}}
	rec, err := New(f.catalog, f.transfer, f.reader, Options{Root: f.root, Quality: setting})
	if err != nil {
		t.Fatal(err)
	}
	f.rec = rec
	return f
}

func (f *fixture) sync(t *testing.T) *Report {
	t.Helper()
	report, err := f.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	return report
}

// audioFiles lists audio files under dir relative to it, sorted.
func audioFiles(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := walkAudio(dir, "", func(path string) error {
		rel, _ := filepath.Rel(dir, path)
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(out)
	return out
}
