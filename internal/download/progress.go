package download

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// reporter forwards events to an optional callback.
type reporter func(ProgressEvent)

func (r reporter) report(level ProgressLevel, format string, args ...any) {
	if r != nil {
		r(ProgressEvent{Message: fmt.Sprintf(format, args...), Level: level})
	}
}

// progressStep is the percentage between two byte progress events.
const progressStep = 25

// bytes returns a byte counter that reports every progressStep percent
// of a download of known length. It is not safe for concurrent use.
func (r reporter) bytes(name string) func(written, total int64) {
	if r == nil {
		return nil
	}
	next := int64(progressStep)
	return func(written, total int64) {
		if total <= 0 || next > 100 {
			return
		}
		pct := written * 100 / total
		if pct < next {
			return
		}
		r.report(LevelVerbose, "%s: %d%% of %s", name, pct, humanize.Bytes(uint64(total)))
		next = (pct/progressStep + 1) * progressStep
	}
}
