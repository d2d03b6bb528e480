package download

import (
	"context"
	"errors"
	"testing"

	"github.com/grafov/m3u8"

	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/quality"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
360/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080
1080/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2500000,RESOLUTION=1280x720
720/index.m3u8
`

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
seg0.ts
#EXTINF:10.0,
seg1.ts
#EXT-X-ENDLIST
`

func TestPickVariant(t *testing.T) {
	variants := []*m3u8.Variant{
		{URI: "a", VariantParams: m3u8.VariantParams{Bandwidth: 800000, Resolution: "640x360"}},
		{URI: "b", VariantParams: m3u8.VariantParams{Bandwidth: 2500000, Resolution: "1280x720"}},
		{URI: "c", VariantParams: m3u8.VariantParams{Bandwidth: 3000000, Resolution: "1280x720"}},
		{URI: "d", VariantParams: m3u8.VariantParams{Bandwidth: 5000000, Resolution: "1920x1080"}},
	}

	tests := []struct {
		name      string
		maxHeight int
		want      string
	}{
		{name: "exact", maxHeight: 1080, want: "d"},
		{name: "bandwidth breaks ties", maxHeight: 720, want: "c"},
		{name: "between sizes", maxHeight: 480, want: "a"},
		{name: "all too tall", maxHeight: 240, want: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickVariant(variants, tt.maxHeight); got == nil || got.URI != tt.want {
				t.Errorf("pickVariant() = %+v, want %s", got, tt.want)
			}
		})
	}

	if pickVariant(nil, 720) != nil {
		t.Error("pickVariant(nil) != nil")
	}
}

func TestTransferVideo(t *testing.T) {
	paths := testPaths(t)
	tmp := isolateTemp(t)
	fetcher := &fakeFetcher{payload: map[string][]byte{
		"https://cdn.test/v/master.m3u8":    []byte(masterPlaylist),
		"https://cdn.test/v/720/index.m3u8": []byte(mediaPlaylist),
		"https://cdn.test/v/720/seg0.ts":    []byte("AAA"),
		"https://cdn.test/v/720/seg1.ts":    []byte("BBB"),
	}}
	streams := &fakeStreams{video: &model.VideoStream{VideoID: "5", M3U8URL: "https://cdn.test/v/master.m3u8"}}
	tr := NewTransferer(Deps{Streams: streams, Fetcher: fetcher, Paths: paths}, Options{VideoQuality: quality.P720}, nil)

	video := &model.Video{ID: "5", Title: "Clip", TrackNumber: 1, Artists: []model.Artist{{Name: "Artist"}}}
	path, err := tr.TransferVideo(context.Background(), video, nil, nil, true)
	if err != nil {
		t.Fatalf("TransferVideo() error = %v", err)
	}
	if want := paths.VideoPath(video, nil, nil); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if got := readString(t, path); got != "AAABBB" {
		t.Errorf("content = %q", got)
	}
	assertEmptyDir(t, tmp)
}

func TestTransferVideo_EmptyPlaylist(t *testing.T) {
	fetcher := &fakeFetcher{payload: map[string][]byte{
		"https://cdn.test/v/index.m3u8": []byte("#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-ENDLIST\n"),
	}}
	streams := &fakeStreams{video: &model.VideoStream{M3U8URL: "https://cdn.test/v/index.m3u8"}}
	tr := NewTransferer(Deps{Streams: streams, Fetcher: fetcher, Paths: testPaths(t)}, Options{VideoQuality: quality.P1080}, nil)

	_, err := tr.TransferVideo(context.Background(), &model.Video{ID: "5", Title: "Clip"}, nil, nil, true)
	if !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("TransferVideo() error = %v, want ErrEmptyPlaylist", err)
	}
}
