package catalog

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	transport "github.com/handiism/tidal-downloader/internal/http"
	"github.com/handiism/tidal-downloader/internal/quality"
)

type fakeAPI struct {
	t       *testing.T
	mu      sync.Mutex
	routes  map[string]func(w http.ResponseWriter, r *http.Request)
	history []string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{t: t, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)

	c, err := NewClient(transport.NewClient(transport.Options{}), Options{
		BaseURL:     srv.URL,
		AccessToken: "tok",
		CountryCode: "NO",
		UserID:      "42",
	})
	if err != nil {
		t.Fatal(err)
	}
	return api, c
}

func (a *fakeAPI) handle(route string, fn func(w http.ResponseWriter, r *http.Request)) {
	a.routes[route] = fn
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.history = append(a.history, r.Method+" "+r.URL.Path)
	a.mu.Unlock()

	if got := r.Header.Get("Authorization"); got != "Bearer tok" {
		a.t.Errorf("Authorization = %q", got)
	}
	if got := r.URL.Query().Get("countryCode"); got != "NO" {
		a.t.Errorf("countryCode = %q", got)
	}
	fn, ok := a.routes[r.Method+" "+r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fn(w, r)
}

func jsonBody(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func TestClient_Track(t *testing.T) {
	api, c := newFakeAPI(t)
	api.handle("GET /tracks/100", jsonBody(`{
		"id": 100, "title": "Song", "version": "Remix", "trackNumber": 2, "volumeNumber": 1,
		"audioQuality": "LOSSLESS", "replayGain": -6.1, "peak": 0.9,
		"streamStartDate": "2020-01-02T00:00:00.000+0000",
		"mediaMetadata": {"tags": ["LOSSLESS", "HIRES_LOSSLESS"]},
		"artists": [{"id": 7, "name": "Artist", "type": "MAIN"}],
		"album": {"id": 55, "title": "Album", "cover": "aa-bb"}
	}`))

	track, err := c.Track(context.Background(), "100")
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if track.ID != "100" || track.FullTitle() != "Song (Remix)" || track.Album.ID != "55" || track.Album.Cover != "aa-bb" {
		t.Errorf("Track() = %+v", track)
	}
	if track.ArtistName() != "Artist" || track.Artists[0].ID != "7" {
		t.Errorf("artists = %+v", track.Artists)
	}
	if track.StreamStartDate.Year() != 2020 || len(track.MediaTags) != 2 {
		t.Errorf("StreamStartDate/MediaTags = %v/%v", track.StreamStartDate, track.MediaTags)
	}
}

func TestClient_NotFound(t *testing.T) {
	_, c := newFakeAPI(t)
	_, err := c.Album(context.Background(), "404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Album() error = %v, want ErrNotFound", err)
	}
	var statusErr *transport.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("error does not carry the status: %v", err)
	}
}

func manifest(t *testing.T, body string) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte(body))
}

func TestClient_StreamURL(t *testing.T) {
	api, c := newFakeAPI(t)
	api.handle("GET /tracks/100/playbackinfopostpaywall", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("audioquality"); got != "HI_RES_LOSSLESS" {
			t.Errorf("audioquality = %q", got)
		}
		fmt.Fprintf(w, `{"trackId": 100, "audioQuality": "LOSSLESS", "bitDepth": 16, "sampleRate": 44100,
			"manifestMimeType": "application/vnd.tidal.bts", "manifest": %q}`,
			manifest(t, `{"mimeType":"audio/mp4","codecs":"flac","encryptionType":"OLD_AES","keyId":"KEY","urls":["https://cdn/x.mp4"]}`))
	})

	stream, err := c.StreamURL(context.Background(), "100", quality.Max)
	if err != nil {
		t.Fatalf("StreamURL() error = %v", err)
	}
	if stream.SoundQuality != "LOSSLESS" || stream.Codec != "flac" || stream.EncryptionKey != "KEY" {
		t.Errorf("StreamURL() = %+v", stream)
	}
	if stream.URL != "https://cdn/x.mp4" || len(stream.SegmentURLs()) != 1 || stream.BitDepth != 16 {
		t.Errorf("StreamURL() urls = %+v", stream)
	}
}

func TestClient_StreamURL_UnsupportedManifest(t *testing.T) {
	api, c := newFakeAPI(t)
	api.handle("GET /tracks/1/playbackinfopostpaywall", jsonBody(`{"manifestMimeType":"application/dash+xml","manifest":""}`))

	if _, err := c.StreamURL(context.Background(), "1", quality.HiFi); !errors.Is(err, ErrUnsupportedManifest) {
		t.Errorf("StreamURL() error = %v, want ErrUnsupportedManifest", err)
	}
}

func TestClient_VideoStreamURL(t *testing.T) {
	api, c := newFakeAPI(t)
	api.handle("GET /videos/9/playbackinfopostpaywall", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("videoquality"); got != "MEDIUM" {
			t.Errorf("videoquality = %q", got)
		}
		fmt.Fprintf(w, `{"videoId": 9, "manifestMimeType": "application/vnd.tidal.emu", "manifest": %q}`,
			manifest(t, `{"mimeType":"application/vnd.apple.mpegurl","urls":["https://cdn/master.m3u8"]}`))
	})

	vs, err := c.VideoStreamURL(context.Background(), "9", quality.P480)
	if err != nil {
		t.Fatalf("VideoStreamURL() error = %v", err)
	}
	if vs.M3U8URL != "https://cdn/master.m3u8" || vs.Resolution != "480p" {
		t.Errorf("VideoStreamURL() = %+v", vs)
	}
}

func TestClient_AlbumItemsPaginates(t *testing.T) {
	api, c := newFakeAPI(t)
	api.handle("GET /albums/5/items", func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		var items []string
		switch offset {
		case "0":
			for i := range pageSize {
				items = append(items, fmt.Sprintf(`{"type":"track","item":{"id":%d,"title":"T%d"}}`, i, i))
			}
		case "100":
			items = append(items, `{"type":"video","item":{"id":"v1","title":"Clip"}}`)
		default:
			t.Errorf("unexpected offset %q", offset)
		}
		fmt.Fprintf(w, `{"totalNumberOfItems":101,"items":[%s]}`, strings.Join(items, ","))
	})

	tracks, videos, err := c.AlbumItems(context.Background(), "5")
	if err != nil {
		t.Fatalf("AlbumItems() error = %v", err)
	}
	if len(tracks) != 100 || len(videos) != 1 || videos[0].ID != "v1" || tracks[99].Title != "T99" {
		t.Errorf("AlbumItems() = %d tracks, %d videos", len(tracks), len(videos))
	}
}

func TestClient_FavoritesAndPlaylists(t *testing.T) {
	api, c := newFakeAPI(t)
	api.handle("GET /users/42/favorites/tracks", jsonBody(`{"totalNumberOfItems":2,"items":[
		{"created":"2024-01-01T00:00:00.000+0000","item":{"id":1,"title":"A"}},
		{"created":"2024-01-02T00:00:00.000+0000","item":{"id":2,"title":"B"}}]}`))
	api.handle("GET /users/42/playlists", jsonBody(`{"totalNumberOfItems":1,"items":[
		{"uuid":"p-1","title":"Liked Songs 01-02-2024","creator":{"id":42},"lastUpdated":"2024-02-01T10:00:00.000+0000"}]}`))

	favs, err := c.FavoriteTracks(context.Background())
	if err != nil || len(favs) != 2 || favs[1].ID != "2" {
		t.Fatalf("FavoriteTracks() = %v, %v", favs, err)
	}
	lists, err := c.OwnedPlaylists(context.Background())
	if err != nil || len(lists) != 1 || lists[0].CreatorID != "42" || lists[0].LastUpdated.Month() != 2 {
		t.Fatalf("OwnedPlaylists() = %+v, %v", lists, err)
	}
}

func TestClient_PlaylistMutations(t *testing.T) {
	api, c := newFakeAPI(t)
	var deleted, added, createdForm string
	api.handle("POST /users/42/playlists", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		createdForm = r.PostForm.Get("title") + "|" + r.PostForm.Get("description")
		io.WriteString(w, `{"uuid":"new-1","title":"Liked Songs 05-06-2024"}`)
	})
	api.handle("GET /playlists/new-1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"e1"`)
		io.WriteString(w, `{"uuid":"new-1","numberOfTracks":3}`)
	})
	api.handle("DELETE /playlists/new-1/items/0,1,2", func(w http.ResponseWriter, r *http.Request) {
		deleted = r.Header.Get("If-None-Match")
		w.WriteHeader(http.StatusNoContent)
	})
	api.handle("POST /playlists/new-1/items", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Header.Get("If-None-Match") != `"e1"` {
			t.Errorf("add without etag")
		}
		added = r.PostForm.Get("trackIds")
		w.WriteHeader(http.StatusOK)
	})

	ctx := context.Background()
	p, err := c.CreatePlaylist(ctx, "Liked Songs 05-06-2024", "desc")
	if err != nil || p.UUID != "new-1" {
		t.Fatalf("CreatePlaylist() = %+v, %v", p, err)
	}
	if createdForm != "Liked Songs 05-06-2024|desc" {
		t.Errorf("create form = %q", createdForm)
	}
	if err := c.ClearPlaylist(ctx, "new-1"); err != nil {
		t.Fatalf("ClearPlaylist() error = %v", err)
	}
	if deleted != `"e1"` {
		t.Errorf("delete If-None-Match = %q", deleted)
	}
	if err := c.AddTracksToPlaylist(ctx, "new-1", []string{"1", "2"}); err != nil {
		t.Fatalf("AddTracksToPlaylist() error = %v", err)
	}
	if added != "1,2" {
		t.Errorf("trackIds = %q", added)
	}
}

func TestClient_ContributorsAndLyrics(t *testing.T) {
	api, c := newFakeAPI(t)
	api.handle("GET /tracks/3/contributors", jsonBody(`{"totalNumberOfItems":2,"items":[{"name":"A","role":"Composer"},{"name":"B","role":"Producer"}]}`))
	api.handle("GET /tracks/3/lyrics", jsonBody(`{"lyrics":"hello","subtitles":"[00:01.00]hello"}`))

	contributors, err := c.Contributors(context.Background(), "3")
	if err != nil || len(contributors) != 2 || contributors[0].Role != "Composer" {
		t.Fatalf("Contributors() = %v, %v", contributors, err)
	}
	lyrics, err := c.Lyrics(context.Background(), "3")
	if err != nil || lyrics.Subtitles != "[00:01.00]hello" {
		t.Fatalf("Lyrics() = %+v, %v", lyrics, err)
	}
}

func TestCoverURL(t *testing.T) {
	got := CoverURL("ab12-cd34-ef")
	want := "https://resources.tidal.com/images/ab12/cd34/ef/1280x1280.jpg"
	if got != want {
		t.Errorf("CoverURL() = %q, want %q", got, want)
	}
}
