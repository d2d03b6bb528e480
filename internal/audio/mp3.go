package audio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
)

// writeMP3 writes the baseline and identity tags as ID3v2 frames.
// Identity values go into TXXX frames keyed by tag name.
func writeMP3(path string, fields Fields) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()

	fillID3(tag, fields)
	return tag.Save()
}

// fillID3 replaces the frames of tag with fields.
func fillID3(tag *id3v2.Tag, fields Fields) {
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	setText := func(id, value string) {
		tag.DeleteFrames(id)
		if value != "" {
			tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
		}
	}

	setText("TIT2", fields.Title)
	setText("TPE1", fields.Artist)
	setText("TALB", fields.Album)
	setText("TPE2", fields.AlbumArtist)
	setText("TCOM", fields.Composer)
	setText("TCOP", fields.Copyright)
	setText("TSRC", fields.ISRC)
	setText("TDRC", fields.Date)
	setText("TRCK", ofTotal(fields.TrackNumber, fields.TrackTotal))
	setText("TPOS", ofTotal(fields.DiscNumber, fields.DiscTotal))

	lyricsID := tag.CommonID("Unsynchronised lyrics/text transcription")
	tag.DeleteFrames(lyricsID)
	if fields.Lyrics != "" {
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Lyrics:   fields.Lyrics,
		})
	}

	tag.DeleteFrames("TXXX")
	for _, c := range fields.Identity {
		if c.Value == "" {
			continue
		}
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: c.Key,
			Value:       c.Value,
		})
	}

	if len(fields.Cover) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     fields.Cover,
		})
	}
}

// readMP3 returns the TXXX frames of path keyed by upper-case
// description, plus the title and artist under TITLE and ARTIST.
func readMP3(path string) (map[string]string, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("open id3 tag: %w", err)
	}
	defer tag.Close()
	return id3Fields(tag), nil
}

func id3Fields(tag *id3v2.Tag) map[string]string {
	out := map[string]string{}
	for _, frame := range tag.GetFrames("TXXX") {
		udtf, ok := frame.(id3v2.UserDefinedTextFrame)
		if !ok {
			continue
		}
		key := strings.ToUpper(udtf.Description)
		if _, seen := out[key]; !seen {
			out[key] = strings.TrimRight(udtf.Value, "\x00")
		}
	}
	if title := tag.Title(); title != "" {
		out["TITLE"] = title
	}
	if artist := tag.Artist(); artist != "" {
		out["ARTIST"] = artist
	}
	return out
}

func ofTotal(n, total int) string {
	if n <= 0 {
		return ""
	}
	if total <= 0 {
		return strconv.Itoa(n)
	}
	return strconv.Itoa(n) + "/" + strconv.Itoa(total)
}
