package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedContainer is returned for files whose container
	// cannot carry the identity tags, such as Ogg.
	ErrUnsupportedContainer = errors.New("container cannot carry tags")

	// ErrNoIdentity is returned when a file has no track identifier tag.
	ErrNoIdentity = errors.New("no track identifier tag")
)

type containerKind int

const (
	containerUnknown containerKind = iota
	containerFLAC
	containerMP3
	containerMP4
	containerWAV
)

func containerOf(path string) containerKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return containerFLAC
	case ".mp3":
		return containerMP3
	case ".m4a", ".mp4", ".m4b", ".alac", ".aac":
		return containerMP4
	case ".wav":
		return containerWAV
	default:
		return containerUnknown
	}
}

// Reader reads identity tags back from published files.
//
// The zero value is ready to use.
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadIdentity returns every identity field stored in path.
func (r *Reader) ReadIdentity(path string) (Identity, error) {
	var (
		raw map[string]string
		err error
	)
	switch containerOf(path) {
	case containerFLAC:
		raw, err = readFLAC(path)
	case containerMP3:
		raw, err = readMP3(path)
	case containerMP4:
		raw, err = readMP4(path)
	case containerWAV:
		raw, err = readWAV(path)
	default:
		return Identity{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedContainer)
	}
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		TrackID:            strings.TrimSpace(raw[TagTrackID]),
		StreamSoundQuality: strings.TrimSpace(raw[TagStreamSoundQuality]),
		AudioQuality:       strings.TrimSpace(raw[TagAudioQuality]),
		Title:              raw["TITLE"],
		Artist:             raw["ARTIST"],
	}, nil
}

// ReadTrackID returns the track identifier of path, or ErrNoIdentity.
func (r *Reader) ReadTrackID(path string) (string, error) {
	id, err := r.ReadIdentity(path)
	if err != nil {
		return "", err
	}
	if id.TrackID == "" {
		return "", ErrNoIdentity
	}
	return id.TrackID, nil
}

// ReadQuality returns the recorded quality label of path, or "" when
// the file carries none.
func (r *Reader) ReadQuality(path string) (string, error) {
	id, err := r.ReadIdentity(path)
	if err != nil {
		return "", err
	}
	return id.Quality(), nil
}
