package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
)

var errNotWAV = errors.New("not a RIFF/WAVE file")

// WAV files carry their tags as an ID3v2 tag inside an "id3 " chunk,
// the layout most players and taggers read.
const wavID3Chunk = "id3 "

func isID3Chunk(id string) bool {
	return strings.EqualFold(id, wavID3Chunk)
}

// readRIFFHeader consumes the 12-byte RIFF/WAVE header.
func readRIFFHeader(r io.Reader) error {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return errNotWAV
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return errNotWAV
	}
	return nil
}

// walkChunks calls fn for each chunk after the RIFF header. The body
// reader is drained after fn returns, so fn may ignore it.
func walkChunks(r io.Reader, fn func(id string, size uint32, body io.Reader) error) error {
	var header [8]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read chunk header: %w", err)
		}
		id := string(header[0:4])
		size := binary.LittleEndian.Uint32(header[4:8])
		body := io.LimitReader(r, int64(size))
		if err := fn(id, size, body); err != nil {
			return err
		}
		if _, err := io.Copy(io.Discard, body); err != nil {
			return err
		}
		if size%2 == 1 {
			// Pad byte; a missing one at the end of the file is tolerated.
			var pad [1]byte
			if _, err := io.ReadFull(r, pad[:]); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
		}
	}
}

func writeChunk(w io.Writer, id string, data io.Reader, size uint32) (int64, error) {
	var header [8]byte
	copy(header[0:4], id)
	binary.LittleEndian.PutUint32(header[4:8], size)
	if _, err := w.Write(header[:]); err != nil {
		return 0, err
	}
	if _, err := io.CopyN(w, data, int64(size)); err != nil {
		return 0, err
	}
	written := int64(8) + int64(size)
	if size%2 == 1 {
		if _, err := w.Write([]byte{0}); err != nil {
			return 0, err
		}
		written++
	}
	return written, nil
}

// writeWAV rewrites path with every existing ID3 chunk replaced by one
// holding fields. The audio chunks are copied unchanged into a sibling
// file that then replaces the original.
func writeWAV(path string, fields Fields) error {
	tag := id3v2.NewEmptyTag()
	fillID3(tag, fields)
	var id3 bytes.Buffer
	if _, err := tag.WriteTo(&id3); err != nil {
		return fmt.Errorf("encode id3 tag: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}
	in := bufio.NewReader(src)
	if err := readRIFFHeader(in); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tagging-*.wav")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	out := bufio.NewWriter(tmp)
	if _, err := out.WriteString("RIFF\x00\x00\x00\x00WAVE"); err != nil {
		return err
	}
	riffSize := int64(4)
	err = walkChunks(in, func(id string, size uint32, body io.Reader) error {
		if isID3Chunk(id) {
			return nil
		}
		n, err := writeChunk(out, id, body, size)
		riffSize += n
		return err
	})
	if err != nil {
		return err
	}
	n, err := writeChunk(out, wavID3Chunk, &id3, uint32(id3.Len()))
	if err != nil {
		return err
	}
	riffSize += n
	if riffSize > int64(^uint32(0)) {
		return fmt.Errorf("%s: RIFF size overflow", filepath.Base(path))
	}
	if err := out.Flush(); err != nil {
		return err
	}

	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(riffSize))
	if _, err := tmp.WriteAt(size[:], 4); err != nil {
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// readWAV returns the identity fields of the first ID3 chunk in path.
// A file without one yields an empty map.
func readWAV(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	in := bufio.NewReader(f)
	if err := readRIFFHeader(in); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	out := map[string]string{}
	found := false
	err = walkChunks(in, func(id string, size uint32, body io.Reader) error {
		if found || !isID3Chunk(id) {
			return nil
		}
		found = true
		tag, err := id3v2.ParseReader(body, id3v2.Options{Parse: true})
		if err != nil {
			return fmt.Errorf("parse id3 chunk: %w", err)
		}
		out = id3Fields(tag)
		return nil
	})
	return out, err
}
