package library

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ioutils "github.com/handiism/tidal-downloader/internal/io"
)

// LedgerEntry is one failure recorded during a sync run.
type LedgerEntry struct {
	TrackID string
	Title   string
	Artist  string
	Err     string
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// renderLedger formats entries as the pipe-delimited error ledger.
func renderLedger(entries []LedgerEntry) string {
	var sb strings.Builder
	sb.WriteString("track_id | title | artist | error\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s | %s | %s | %s\n", dash(e.TrackID), dash(e.Title), dash(e.Artist), dash(e.Err))
	}
	return sb.String()
}

// writeLedger stores entries in a timestamped file under root and returns
// its path.
func writeLedger(root string, now time.Time, entries []LedgerEntry) (string, error) {
	path := filepath.Join(root, "_sync_errors_"+now.Format("20060102-150405")+".txt")
	if err := ioutils.WriteFileAtomic(path, []byte(renderLedger(entries)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
