package library

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/handiism/tidal-downloader/internal/quality"
)

func newNamingReconciler(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, quality.HiFi)
	f.rec.cache = LoadQualityCache(filepath.Join(f.rec.Root(), CacheFileName))
	return f
}

func TestCanonicalize_CollisionsAndIdempotence(t *testing.T) {
	f := newNamingReconciler(t)
	root := f.rec.Root()
	writeTagged(t, filepath.Join(root, "x.flac"), "1", "Song", "Artist, Other", "LOSSLESS")
	writeTagged(t, filepath.Join(root, "y.flac"), "2", "Song", "Artist", "LOSSLESS")

	stats := f.rec.canonicalize(root, "")
	if stats.Renamed != 2 || stats.Collisions != 1 {
		t.Errorf("stats = %+v", stats)
	}
	want := []string{"Song - Artist (2).flac", "Song - Artist.flac"}
	if got := audioFiles(t, root); !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}

	again := f.rec.canonicalize(root, "")
	if again != (NameStats{}) {
		t.Errorf("second pass = %+v, want no-op", again)
	}
}

func TestCanonicalize_InfersFromFileName(t *testing.T) {
	f := newNamingReconciler(t)
	root := f.rec.Root()
	for _, name := range []string{"Band - Tune.wav", "noise.wav"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("RIFF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	stats := f.rec.canonicalize(root, "")
	if stats.Renamed != 1 || stats.Inferred != 1 || stats.SkippedNoPattern != 1 {
		t.Errorf("stats = %+v", stats)
	}
	want := []string{"Tune - Band.wav", "noise.wav"}
	if got := audioFiles(t, root); !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}

	again := f.rec.canonicalize(root, "")
	if again.Renamed != 0 {
		t.Errorf("second pass renamed %d files", again.Renamed)
	}
	if got := audioFiles(t, root); !reflect.DeepEqual(got, want) {
		t.Errorf("files after second pass = %v", got)
	}
}

func TestCanonicalize_MovesCacheEntries(t *testing.T) {
	f := newNamingReconciler(t)
	root := f.rec.Root()
	path := filepath.Join(root, "x.flac")
	writeTagged(t, path, "1", "Song", "Artist", "LOSSLESS")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.rec.cache.Store(path, info, "LOSSLESS"); err != nil {
		t.Fatal(err)
	}

	f.rec.canonicalize(root, "")

	renamed := filepath.Join(root, "Song - Artist.flac")
	info, err = os.Stat(renamed)
	if err != nil {
		t.Fatal(err)
	}
	if q, ok := f.rec.cache.Lookup(renamed, info); !ok || q != "LOSSLESS" {
		t.Errorf("Lookup(renamed) = %q, %v", q, ok)
	}
	onDisk := LoadQualityCache(filepath.Join(root, CacheFileName))
	if q, ok := onDisk.Lookup(renamed, info); !ok || q != "LOSSLESS" {
		t.Errorf("persisted Lookup(renamed) = %q, %v", q, ok)
	}
}

func TestFlatten(t *testing.T) {
	f := newNamingReconciler(t)
	root := f.rec.Root()
	writeTagged(t, filepath.Join(root, "a.flac"), "1", "A", "X", "LOW")
	writeTagged(t, filepath.Join(root, "Deep", "Er", "a.flac"), "2", "A", "X", "LOW")
	writeTagged(t, filepath.Join(root, RemovedDirName, "Old", "b.flac"), "3", "B", "X", "LOW")

	if moved := f.rec.flatten(); moved != 1 {
		t.Errorf("flatten() = %d, want 1", moved)
	}
	want := []string{"_Removed/Old/b.flac", "a (2).flac", "a.flac"}
	if got := audioFiles(t, root); !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
	if _, err := os.Stat(filepath.Join(root, "Deep")); !os.IsNotExist(err) {
		t.Error("empty folders left behind")
	}
}

func TestIsCanonical(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Song - Artist.flac", true},
		{"Song - Artist (2).flac", true},
		{"Song - Artist (12).flac", true},
		{"Song - Artist (x).flac", false},
		{"Song - Artist ().flac", false},
		{"Song - Artist.mp3", false},
		{"Other - Artist.flac", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCanonical(tt.name, "Song - Artist", ".flac"); got != tt.want {
				t.Errorf("isCanonical(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestInferFromStem(t *testing.T) {
	tests := []struct {
		stem          string
		artist, title string
		ok            bool
	}{
		{"Band - Tune", "Band", "Tune", true},
		{"Band-Tune - Live", "Band", "Tune - Live", true},
		{"Tune", "", "", false},
		{" - Tune", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.stem, func(t *testing.T) {
			artist, title, ok := inferFromStem(tt.stem)
			if artist != tt.artist || title != tt.title || ok != tt.ok {
				t.Errorf("inferFromStem(%q) = %q, %q, %v", tt.stem, artist, title, ok)
			}
		})
	}
}
