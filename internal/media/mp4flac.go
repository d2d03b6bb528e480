package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	mp4 "github.com/abema/go-mp4"
)

// MP4FLAC extracts FLAC frames carried in an (optionally fragmented) MP4
// container and writes a native FLAC stream, without spawning a process.
//
// The FLAC metadata blocks come from the dfLa box of the sample entry;
// the frames are the mdat payloads in file order.
type MP4FLAC struct{}

// NewMP4FLAC returns the in-process FLAC remuxer.
func NewMP4FLAC() *MP4FLAC {
	return &MP4FLAC{}
}

// Name implements Remuxer.
func (m *MP4FLAC) Name() string { return "mp4flac" }

// Available implements Remuxer. The backend has no external requirements.
func (m *MP4FLAC) Available() bool { return true }

var flacMarker = []byte("fLaC")

// Remux implements Remuxer.
func (m *MP4FLAC) Remux(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	header, err := readFLACHeader(ctx, in)
	if err != nil {
		return err
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)

	if err := writeFLAC(ctx, in, w, header); err != nil {
		out.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// readFLACHeader finds the dfLa box inside moov and returns the FLAC
// metadata blocks it carries.
func readFLACHeader(ctx context.Context, r io.ReadSeeker) ([]byte, error) {
	var header []byte
	_, err := mp4.ReadBoxStructure(r, func(h *mp4.ReadHandle) (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if h.BoxInfo.Type != mp4.BoxTypeMoov() {
			return nil, nil
		}
		var buf bytes.Buffer
		if _, err := h.ReadData(&buf); err != nil {
			return nil, err
		}
		header = findDfLa(buf.Bytes())
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("read mp4 structure: %w", err)
	}
	if header == nil {
		return nil, errors.New("no dfLa box: stream is not FLAC in MP4")
	}
	return header, nil
}

// findDfLa locates a dfLa box in raw moov bytes and returns its metadata
// blocks, skipping the 4 byte version and flags.
func findDfLa(moov []byte) []byte {
	idx := bytes.Index(moov, []byte("dfLa"))
	if idx < 4 {
		return nil
	}
	size := int(binary.BigEndian.Uint32(moov[idx-4 : idx]))
	start := idx + 4 + 4
	end := idx - 4 + size
	if size < 12 || end > len(moov) || start >= end {
		return nil
	}
	return moov[start:end]
}

func writeFLAC(ctx context.Context, r io.ReadSeeker, w io.Writer, header []byte) error {
	if _, err := w.Write(flacMarker); err != nil {
		return err
	}
	if _, err := w.Write(header); err != nil {
		return err
	}

	frames := 0
	_, err := mp4.ReadBoxStructure(r, func(h *mp4.ReadHandle) (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if h.BoxInfo.Type != mp4.BoxTypeMdat() {
			return nil, nil
		}
		frames++
		_, err := h.ReadData(w)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("copy mdat: %w", err)
	}
	if frames == 0 {
		return errors.New("no mdat box")
	}
	return nil
}
