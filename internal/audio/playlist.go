package audio

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
)

// PlaylistFormat represents supported playlist file formats.
type PlaylistFormat int

const (
	// FormatM3U creates extended .m3u files.
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	FormatPLS

	// FormatWPL creates .wpl files (Windows Media Player).
	FormatWPL

	// FormatZPL creates .zpl files (Zune/Groove Music).
	FormatZPL
)

var playlistFormatNames = map[PlaylistFormat]string{
	FormatM3U: "m3u",
	FormatPLS: "pls",
	FormatWPL: "wpl",
	FormatZPL: "zpl",
}

// String returns the file extension without the dot.
func (f PlaylistFormat) String() string {
	if name, ok := playlistFormatNames[f]; ok {
		return name
	}
	return "m3u"
}

// ParsePlaylistFormat accepts "m3u", "pls", "wpl" or "zpl".
func ParsePlaylistFormat(value string) (PlaylistFormat, error) {
	for format, name := range playlistFormatNames {
		if strings.EqualFold(strings.TrimPrefix(value, "."), name) {
			return format, nil
		}
	}
	return FormatM3U, fmt.Errorf("unknown playlist format %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (f PlaylistFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *PlaylistFormat) UnmarshalText(text []byte) error {
	parsed, err := ParsePlaylistFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// PlaylistEntry is one published file in a playlist.
type PlaylistEntry struct {
	Path   string
	Title  string
	Artist string
	// Duration in seconds.
	Duration int
}

// PlaylistCreator renders playlist files for a finished batch.
//
// Entry paths are written relative to the playlist file's directory
// when possible, so the folder can be moved as a whole.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U)
//	content := creator.CreatePlaylist("/music/Mix/Mix.m3u", "Mix", entries)
//	ioutils.WriteFileAtomic("/music/Mix/Mix.m3u", []byte(content), 0o644)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// 01 Artist - Song Title.flac
type PlaylistCreator struct {
	format PlaylistFormat
}

// NewPlaylistCreator creates a new PlaylistCreator.
func NewPlaylistCreator(format PlaylistFormat) *PlaylistCreator {
	return &PlaylistCreator{format: format}
}

// FileName is the playlist file name for a playlist titled title.
func (p *PlaylistCreator) FileName(title string) string {
	return title + "." + p.format.String()
}

// CreatePlaylist generates playlist content for entries, to be stored at
// playlistPath.
func (p *PlaylistCreator) CreatePlaylist(playlistPath, title string, entries []PlaylistEntry) string {
	dir := filepath.Dir(playlistPath)
	rel := make([]string, len(entries))
	for i, e := range entries {
		rel[i] = relativeTo(dir, e.Path)
	}

	switch p.format {
	case FormatPLS:
		return createPLS(entries, rel)
	case FormatWPL:
		return createSMIL("wpl", "1.0", title, entries, rel, false)
	case FormatZPL:
		return createSMIL("zpl", "2.0", title, entries, rel, true)
	default:
		return createM3U(entries, rel)
	}
}

func relativeTo(dir, path string) string {
	if r, err := filepath.Rel(dir, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return path
}

func entryLabel(e PlaylistEntry) string {
	if e.Artist == "" {
		return e.Title
	}
	return e.Artist + " - " + e.Title
}

func createM3U(entries []PlaylistEntry, rel []string) string {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "#EXTINF:%d,%s\n", e.Duration, entryLabel(e))
		sb.WriteString(rel[i] + "\n")
	}
	return sb.String()
}

// createPLS generates an INI-style PLS playlist:
//
//	[playlist]
//	File1=filename1.flac
//	Title1=Artist - Song Title
//	Length1=180
//	NumberOfEntries=1
//	Version=2
func createPLS(entries []PlaylistEntry, rel []string) string {
	var sb strings.Builder
	sb.WriteString("[playlist]\n")
	for i, e := range entries {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, rel[i])
		fmt.Fprintf(&sb, "Title%d=%s\n", idx, entryLabel(e))
		fmt.Fprintf(&sb, "Length%d=%d\n", idx, e.Duration)
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(entries))
	sb.WriteString("Version=2\n")
	return sb.String()
}

// createSMIL generates the XML playlists of Windows Media Player (wpl)
// and Zune (zpl). The zpl variant adds per-entry metadata.
func createSMIL(kind, version, title string, entries []PlaylistEntry, rel []string, detailed bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<?%s version=\"%s\"?>\n", kind, version)
	sb.WriteString("<smil>\n  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(title))
	if detailed {
		sb.WriteString("    <meta name=\"Generator\" content=\"tidal-dl\"/>\n")
		fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(entries))
	}
	sb.WriteString("  </head>\n  <body>\n    <seq>\n")
	for i, e := range entries {
		if detailed {
			fmt.Fprintf(&sb, "      <media src=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\" duration=\"%d\"/>\n",
				html.EscapeString(rel[i]), html.EscapeString(e.Title), html.EscapeString(e.Artist), e.Duration*1000)
			continue
		}
		fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", html.EscapeString(rel[i]))
	}
	sb.WriteString("    </seq>\n  </body>\n</smil>\n")
	return sb.String()
}
