package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/handiism/tidal-downloader/internal/model"
)

func TestGate_ShouldSkip(t *testing.T) {
	lossless := &model.Stream{URL: "https://cdn.test/a.flac", SoundQuality: "LOSSLESS"}

	tests := []struct {
		name    string
		enabled bool
		convert string
		content string // empty means no file
		size    int64
		sizeErr error
		reader  fakeReader
		remote  string
		stream  *model.Stream
		want    bool
	}{
		{name: "disabled", enabled: false, content: "data", size: 4, reader: fakeReader{quality: "LOSSLESS"}, remote: lossless.URL, stream: lossless, want: false},
		{name: "missing file", enabled: true, reader: fakeReader{quality: "LOSSLESS"}, remote: lossless.URL, stream: lossless, want: false},
		{name: "size only, complete", enabled: true, content: "data", size: 4, remote: lossless.URL, stream: nil, want: true},
		{name: "size only, truncated", enabled: true, content: "da", size: 1000, remote: lossless.URL, stream: nil, want: false},
		{name: "size only, size unknown", enabled: true, content: "da", sizeErr: errors.New("timeout"), remote: lossless.URL, stream: nil, want: true},
		{name: "no remote url", enabled: true, content: "da", size: 1000, reader: fakeReader{quality: "LOSSLESS"}, stream: lossless, want: true},
		{name: "partial local file", enabled: true, content: "da", size: 4, reader: fakeReader{quality: "LOSSLESS"}, remote: lossless.URL, stream: lossless, want: false},
		{name: "size unknown falls through", enabled: true, content: "da", sizeErr: errors.New("timeout"), reader: fakeReader{quality: "LOSSLESS"}, remote: lossless.URL, stream: lossless, want: true},
		{name: "equal quality", enabled: true, content: "data", size: 4, reader: fakeReader{quality: "LOSSLESS"}, remote: lossless.URL, stream: lossless, want: true},
		{name: "better local quality", enabled: true, content: "data", size: 4, reader: fakeReader{quality: "HI_RES_LOSSLESS"}, remote: lossless.URL, stream: lossless, want: true},
		{name: "worse local quality", enabled: true, content: "data", size: 4, reader: fakeReader{quality: "HIGH"}, remote: lossless.URL, stream: lossless, want: false},
		{name: "missing quality tag", enabled: true, content: "data", size: 4, reader: fakeReader{}, remote: lossless.URL, stream: lossless, want: false},
		{name: "unreadable tags", enabled: true, content: "data", size: 4, reader: fakeReader{err: errors.New("corrupt")}, remote: lossless.URL, stream: lossless, want: false},
		{name: "unknown local label", enabled: true, content: "data", size: 4, reader: fakeReader{quality: "DOLBY_ATMOS"}, remote: lossless.URL, stream: lossless, want: false},
		{name: "conversion ignores size", enabled: true, convert: "mp3", content: "da", size: 4, reader: fakeReader{quality: "LOSSLESS"}, remote: lossless.URL, stream: lossless, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "01 - Song.flac")
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			fetcher := &fakeFetcher{size: tt.size, sizeErr: tt.sizeErr}
			gate := NewGate(tt.enabled, tt.convert, fetcher, tt.reader)

			if got := gate.ShouldSkip(context.Background(), path, tt.remote, tt.stream); got != tt.want {
				t.Errorf("ShouldSkip() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_EmptyFileNeverSatisfies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.flac")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	gate := NewGate(true, "", &fakeFetcher{}, fakeReader{quality: "HI_RES_LOSSLESS"})
	if gate.ShouldSkip(context.Background(), path, "", nil) {
		t.Error("zero-size file satisfied the gate")
	}
}
