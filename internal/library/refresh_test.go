package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/handiism/tidal-downloader/internal/audio"
)

type recordingWriter struct {
	requests []audio.WriteRequest
	fail     bool
}

func (w *recordingWriter) Write(ctx context.Context, req audio.WriteRequest) error {
	if w.fail {
		return errors.New("read-only")
	}
	w.requests = append(w.requests, req)
	return nil
}

func TestRefresh(t *testing.T) {
	dir := t.TempDir()
	writeTagged(t, filepath.Join(dir, "a.flac"), "A", "Old", "Old", "HI_RES_LOSSLESS")
	writeTagged(t, filepath.Join(dir, "sub", "gone.flac"), "Z", "Gone", "Nobody", "LOW")
	if err := os.WriteFile(filepath.Join(dir, "plain.wav"), []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	writer := &recordingWriter{}
	r := NewRefresher(newCatalog(), &contentReader{}, writer, nil)

	report, err := r.Refresh(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if report.Refreshed != 1 || report.Untracked != 1 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(writer.requests) != 1 {
		t.Fatalf("writes = %d, want 1", len(writer.requests))
	}
	req := writer.requests[0]
	if req.Track.Title != "Title A" || req.Album == nil || req.Album.ID != "alb-A" {
		t.Errorf("request track = %+v, album = %+v", req.Track, req.Album)
	}
	if req.Stream == nil || req.Stream.SoundQuality != "HI_RES_LOSSLESS" {
		t.Errorf("recorded quality not kept: %+v", req.Stream)
	}
}

func TestRefresh_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	writeTagged(t, filepath.Join(dir, "a.flac"), "A", "Old", "Old", "")

	r := NewRefresher(newCatalog(), &contentReader{}, &recordingWriter{fail: true}, nil)
	report, err := r.Refresh(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 1 || report.Refreshed != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestRefresh_Canceled(t *testing.T) {
	dir := t.TempDir()
	writeTagged(t, filepath.Join(dir, "a.flac"), "A", "Old", "Old", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRefresher(newCatalog(), &contentReader{}, &recordingWriter{}, nil)
	if _, err := r.Refresh(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh() error = %v, want context.Canceled", err)
	}
}
