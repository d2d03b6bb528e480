package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/handiism/tidal-downloader/internal/model"
)

func testRequest(path string) WriteRequest {
	return WriteRequest{
		Track: &model.Track{
			ID:                    "1001",
			Title:                 "Song",
			Version:               "Live",
			Album:                 model.AlbumRef{ID: "77", Title: "Album", Cover: "ab-cd"},
			Artists:               []model.Artist{{Name: "First"}, {Name: "Second"}},
			TrackNumber:           3,
			VolumeNumber:          1,
			TrackNumberOnPlaylist: 9,
			ISRC:                  "USABC1234567",
			ReplayGain:            -7.5,
			Peak:                  0.98765,
			AudioQuality:          "LOSSLESS",
			AudioModes:            []string{"STEREO"},
			Explicit:              true,
		},
		Album: &model.Album{
			ID:              "77",
			Title:           "Album",
			Artists:         []model.Artist{{Name: "First"}},
			ReleaseDate:     time.Date(2021, 5, 7, 0, 0, 0, 0, time.UTC),
			NumberOfTracks:  12,
			NumberOfVolumes: 1,
			Copyright:       "(C) Label",
			UPC:             "0123",
			MediaTags:       []string{"LOSSLESS"},
		},
		Stream: &model.Stream{SoundQuality: "HI_RES_LOSSLESS", Codec: "flac", BitDepth: 24, SampleRate: 96000},
		Path:   path,
		Contributors: []model.Contributor{
			{Name: "Writer A", Role: "Composer"},
			{Name: "Writer A", Role: "Composer"},
			{Name: "Eng B", Role: "Mixing Engineer"},
		},
		Lyrics: &model.Lyrics{Text: "la la", Subtitles: "[00:01.00]la la"},
	}
}

func comment(list []Comment, key string) (string, bool) {
	for _, c := range list {
		if c.Key == key {
			return c.Value, true
		}
	}
	return "", false
}

func TestBuildFields(t *testing.T) {
	f := BuildFields(testRequest("x.flac"))

	if f.Title != "Song (Live)" {
		t.Errorf("Title = %q", f.Title)
	}
	if f.Artist != "First, Second" {
		t.Errorf("Artist = %q", f.Artist)
	}
	if f.Composer != "Writer A" {
		t.Errorf("Composer = %q", f.Composer)
	}
	if f.Copyright != "(C) Label" {
		t.Errorf("Copyright = %q, want album fallback", f.Copyright)
	}
	if f.Date != "2021-05-07" || f.TrackTotal != 12 || f.DiscTotal != 1 {
		t.Errorf("Date/TrackTotal/DiscTotal = %q/%d/%d", f.Date, f.TrackTotal, f.DiscTotal)
	}
	if f.Lyrics != "[00:01.00]la la" {
		t.Errorf("Lyrics = %q, want synced lyrics", f.Lyrics)
	}
	if got := f.Credits["COMPOSER"]; len(got) != 1 {
		t.Errorf("Credits[COMPOSER] = %v, want de-duplicated", got)
	}
	if got := f.Credits["MIXING_ENGINEER"]; len(got) != 1 || got[0] != "Eng B" {
		t.Errorf("Credits[MIXING_ENGINEER] = %v", got)
	}

	identity := map[string]string{
		TagTrackID:            "1001",
		TagAudioQuality:       "LOSSLESS",
		TagStreamSoundQuality: "HI_RES_LOSSLESS",
	}
	for key, want := range identity {
		if got, _ := comment(f.Identity, key); got != want {
			t.Errorf("identity %s = %q, want %q", key, got, want)
		}
	}

	extended := map[string]string{
		tagReplayGainGain:     "-7.50 dB",
		tagReplayGainPeak:     "0.987650",
		tagExplicit:           "1",
		tagBitsPerSample:      "24",
		tagSampleRate:         "96000",
		tagPlaylistTrackNum:   "9",
		tagBarcode:            "0123",
		tagMediaMetadataTags:  "LOSSLESS",
		tagCredits:            "Writer A, Eng B",
		tagURL:                "https://listen.tidal.com/track/1001",
		tagURLOfficialRelease: "https://listen.tidal.com/album/77",
	}
	for key, want := range extended {
		if got, _ := comment(f.Extended, key); got != want {
			t.Errorf("extended %s = %q, want %q", key, got, want)
		}
	}
	if _, ok := comment(f.Extended, tagAlbumVersion); ok {
		t.Error("empty album version should be skipped")
	}
}

func TestBuildFields_MultiVolumeOmitsTrackTotal(t *testing.T) {
	req := testRequest("x.flac")
	req.Album.NumberOfVolumes = 2
	if f := BuildFields(req); f.TrackTotal != 0 {
		t.Errorf("TrackTotal = %d, want 0 for multi-disc", f.TrackTotal)
	}
}

func TestRoleToken(t *testing.T) {
	if got := RoleToken(" Mixing Engineer "); got != "MIXING_ENGINEER" {
		t.Errorf("RoleToken() = %q", got)
	}
}

func TestIdentity_Quality(t *testing.T) {
	if q := (Identity{StreamSoundQuality: "HI_RES", AudioQuality: "LOSSLESS"}).Quality(); q != "HI_RES" {
		t.Errorf("Quality() = %q, want stream quality", q)
	}
	if q := (Identity{AudioQuality: "LOSSLESS"}).Quality(); q != "LOSSLESS" {
		t.Errorf("Quality() = %q, want audio quality fallback", q)
	}
}

// minimalFLAC returns a FLAC stream with a single STREAMINFO block and
// a few fake frame bytes.
func minimalFLAC() []byte {
	var b bytes.Buffer
	b.WriteString("fLaC")
	header := uint32(0x80)<<24 | 34
	_ = binary.Write(&b, binary.BigEndian, header)
	b.Write(make([]byte, 34))
	b.WriteString("FRAMES")
	return b.Bytes()
}

func TestTagger_FLACRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.flac")
	if err := os.WriteFile(path, minimalFLAC(), 0o644); err != nil {
		t.Fatal(err)
	}

	req := testRequest(path)
	if err := NewTagger(nil, nil).Write(context.Background(), req); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	r := NewReader()
	id, err := r.ReadIdentity(path)
	if err != nil {
		t.Fatalf("ReadIdentity() error = %v", err)
	}
	if id.TrackID != "1001" || id.StreamSoundQuality != "HI_RES_LOSSLESS" || id.Title != "Song (Live)" {
		t.Errorf("ReadIdentity() = %+v", id)
	}

	// A second write replaces the comment block instead of appending.
	req.Stream.SoundQuality = "LOSSLESS"
	_ = NewTagger(nil, nil).Write(context.Background(), req)
	if q, _ := r.ReadQuality(path); q != "LOSSLESS" {
		t.Errorf("ReadQuality() after rewrite = %q, want LOSSLESS", q)
	}
}

func TestTagger_MP3RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x00}, 64), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := NewTagger(nil, nil).Write(context.Background(), testRequest(path)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	r := NewReader()
	id, err := r.ReadTrackID(path)
	if err != nil || id != "1001" {
		t.Errorf("ReadTrackID() = %q, %v", id, err)
	}
	if q, _ := r.ReadQuality(path); q != "HI_RES_LOSSLESS" {
		t.Errorf("ReadQuality() = %q", q)
	}

	req := testRequest(path)
	req.Stream.SoundQuality = "LOSSLESS"
	if err := NewTagger(nil, nil).Write(context.Background(), req); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	if q, _ := r.ReadQuality(path); q != "LOSSLESS" {
		t.Errorf("ReadQuality() after rewrite = %q, want LOSSLESS", q)
	}
}

// minimalWAV returns a RIFF/WAVE file with a fmt chunk and an odd-sized
// data chunk, so pad bytes are exercised.
func minimalWAV() []byte {
	chunk := func(b *bytes.Buffer, id string, data []byte) {
		b.WriteString(id)
		_ = binary.Write(b, binary.LittleEndian, uint32(len(data)))
		b.Write(data)
		if len(data)%2 == 1 {
			b.WriteByte(0)
		}
	}
	var body bytes.Buffer
	body.WriteString("WAVE")
	chunk(&body, "fmt ", make([]byte, 16))
	chunk(&body, "data", []byte("PCM16"))

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(body.Len()))
	b.Write(body.Bytes())
	return b.Bytes()
}

// wavChunks lists the chunk IDs of a RIFF file and returns the data chunk.
func wavChunks(t *testing.T, path string) ([]string, []byte) {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(raw[4:8]); int(got) != len(raw)-8 {
		t.Errorf("RIFF size = %d, file holds %d", got, len(raw)-8)
	}
	var ids []string
	var data []byte
	for off := 12; off+8 <= len(raw); {
		id := string(raw[off : off+4])
		size := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		ids = append(ids, id)
		if id == "data" {
			data = raw[off+8 : off+8+size]
		}
		off += 8 + size + size%2
	}
	return ids, data
}

func TestTagger_WAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.wav")
	if err := os.WriteFile(path, minimalWAV(), 0o644); err != nil {
		t.Fatal(err)
	}

	req := testRequest(path)
	if err := NewTagger(nil, nil).Write(context.Background(), req); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	r := NewReader()
	id, err := r.ReadIdentity(path)
	if err != nil {
		t.Fatalf("ReadIdentity() error = %v", err)
	}
	if id.TrackID != "1001" || id.StreamSoundQuality != "HI_RES_LOSSLESS" || id.Title != "Song (Live)" || id.Artist != "First, Second" {
		t.Errorf("ReadIdentity() = %+v", id)
	}

	req.Stream.SoundQuality = "LOSSLESS"
	if err := NewTagger(nil, nil).Write(context.Background(), req); err != nil {
		t.Fatalf("second Write() error = %v", err)
	}
	if q, _ := r.ReadQuality(path); q != "LOSSLESS" {
		t.Errorf("ReadQuality() after rewrite = %q, want LOSSLESS", q)
	}

	ids, data := wavChunks(t, path)
	if want := []string{"fmt ", "data", "id3 "}; strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("chunks = %q, want %q", ids, want)
	}
	if string(data) != "PCM16" {
		t.Errorf("data chunk = %q, want untouched audio", data)
	}
}

func TestReader_UntaggedWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.wav")
	if err := os.WriteFile(path, minimalWAV(), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader().ReadTrackID(path); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("ReadTrackID() error = %v, want ErrNoIdentity", err)
	}
}

func TestReader_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader().ReadTrackID(path); !errors.Is(err, ErrUnsupportedContainer) {
		t.Errorf("ReadTrackID() error = %v, want ErrUnsupportedContainer", err)
	}
	// Writing to an untaggable container is silently skipped.
	if err := NewTagger(nil, nil).Write(context.Background(), testRequest(path)); err != nil {
		t.Errorf("Write() error = %v, want nil", err)
	}
}

func TestTagger_BrokenFileIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.flac")
	if err := os.WriteFile(path, []byte("not flac"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewTagger(nil, nil).Write(context.Background(), testRequest(path)); err == nil {
		t.Error("Write() on a broken file returned nil, want a logged error")
	}
}

type countingFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (f *countingFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[url]++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("jpeg:" + url), nil
}

func TestCoverCache(t *testing.T) {
	fetcher := &countingFetcher{}
	cache := NewCoverCache(fetcher, func(id string) string { return "https://img/" + id })
	ctx := context.Background()

	for range 3 {
		data, err := cache.Get(ctx, "ab-cd")
		if err != nil || string(data) != "jpeg:https://img/ab-cd" {
			t.Fatalf("Get() = %q, %v", data, err)
		}
	}
	if n := fetcher.calls["https://img/ab-cd"]; n != 1 {
		t.Errorf("fetch count = %d, want 1", n)
	}
	if data, err := cache.Get(ctx, ""); data != nil || err != nil {
		t.Errorf("Get(\"\") = %v, %v, want nil, nil", data, err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestCoverCache_ErrorIsNotCached(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("offline")}
	cache := NewCoverCache(fetcher, func(id string) string { return id })

	if _, err := cache.Get(context.Background(), "x"); err == nil {
		t.Fatal("Get() error = nil, want fetch error")
	}
	fetcher.err = nil
	if _, err := cache.Get(context.Background(), "x"); err != nil {
		t.Fatalf("Get() retry error = %v", err)
	}
	if fetcher.calls["x"] != 2 {
		t.Errorf("fetch count = %d, want 2", fetcher.calls["x"])
	}
}
