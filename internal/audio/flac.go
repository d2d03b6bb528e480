package audio

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// writeFLAC replaces the Vorbis comment and picture blocks of path.
func writeFLAC(path string, fields Fields) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	kept := make([]*flac.MetaDataBlock, 0, len(f.Meta))
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment && block.Type != flac.Picture {
			kept = append(kept, block)
		}
	}
	f.Meta = kept

	block := vorbisComment(fields).Marshal()
	f.Meta = append(f.Meta, &block)

	if len(fields.Cover) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", fields.Cover, "image/jpeg")
		if err != nil {
			return fmt.Errorf("build cover block: %w", err)
		}
		picBlock := pic.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}

	return f.Save(path)
}

func vorbisComment(fields Fields) *flacvorbis.MetaDataBlockVorbisComment {
	cmt := flacvorbis.New()
	add := func(key, value string) {
		if value != "" {
			_ = cmt.Add(key, value)
		}
	}

	add(flacvorbis.FIELD_TITLE, fields.Title)
	add(flacvorbis.FIELD_ARTIST, fields.Artist)
	add(flacvorbis.FIELD_ALBUM, fields.Album)
	add("ALBUMARTIST", fields.AlbumArtist)
	add("COMPOSER", fields.Composer)
	add(flacvorbis.FIELD_COPYRIGHT, fields.Copyright)
	add(flacvorbis.FIELD_ISRC, fields.ISRC)
	add(flacvorbis.FIELD_DATE, fields.Date)
	add("LYRICS", fields.Lyrics)
	add(flacvorbis.FIELD_TRACKNUMBER, positive(fields.TrackNumber))
	add("TRACKTOTAL", positive(fields.TrackTotal))
	add("DISCNUMBER", positive(fields.DiscNumber))
	add("DISCTOTAL", positive(fields.DiscTotal))

	for _, c := range fields.Identity {
		add(c.Key, c.Value)
	}
	for _, c := range fields.Extended {
		add(c.Key, c.Value)
	}

	roles := make([]string, 0, len(fields.Credits))
	for role := range fields.Credits {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		for _, name := range fields.Credits[role] {
			add(tagCreditsPrefix+role, name)
		}
	}
	return cmt
}

// readFLAC returns the Vorbis comments of path keyed by upper-case name.
// Multi-valued keys keep their first value.
func readFLAC(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	f, err := flac.ParseMetadata(file)
	if err != nil {
		return nil, fmt.Errorf("parse flac: %w", err)
	}

	out := map[string]string{}
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return nil, fmt.Errorf("parse vorbis comment: %w", err)
		}
		for _, line := range cmt.Comments {
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			key = strings.ToUpper(key)
			if _, seen := out[key]; !seen {
				out[key] = value
			}
		}
	}
	return out, nil
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
