package audio

import (
	"fmt"
	"strings"

	"github.com/zhaarey/go-mp4tag"
)

// writeMP4 writes iTunes-style atoms. Identity values are stored as
// freeform "----" atoms.
func writeMP4(path string, fields Fields) error {
	t := &mp4tag.MP4Tags{
		Title:       fields.Title,
		Artist:      fields.Artist,
		Album:       fields.Album,
		AlbumArtist: fields.AlbumArtist,
		Composer:    fields.Composer,
		Copyright:   fields.Copyright,
		Date:        fields.Date,
		Lyrics:      fields.Lyrics,
		TrackNumber: int16(fields.TrackNumber),
		TrackTotal:  int16(fields.TrackTotal),
		DiscNumber:  int16(fields.DiscNumber),
		DiscTotal:   int16(fields.DiscTotal),
		Custom:      map[string]string{},
	}
	if fields.ISRC != "" {
		t.Custom["ISRC"] = fields.ISRC
	}
	for _, c := range fields.Identity {
		if c.Value != "" {
			t.Custom[c.Key] = c.Value
		}
	}
	if len(fields.Cover) > 0 {
		t.Pictures = []*mp4tag.MP4Picture{{Data: fields.Cover}}
	}

	mp4, err := mp4tag.Open(path)
	if err != nil {
		return fmt.Errorf("open mp4: %w", err)
	}
	defer mp4.Close()
	return mp4.Write(t, []string{})
}

// readMP4 returns the freeform atoms of path keyed by upper-case name,
// plus the title and artist under TITLE and ARTIST.
func readMP4(path string) (map[string]string, error) {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mp4: %w", err)
	}
	defer mp4.Close()

	tags, err := mp4.Read()
	if err != nil {
		return nil, fmt.Errorf("read mp4 tags: %w", err)
	}

	out := map[string]string{}
	for key, value := range tags.Custom {
		out[strings.ToUpper(key)] = value
	}
	if tags.Title != "" {
		out["TITLE"] = tags.Title
	}
	if tags.Artist != "" {
		out["ARTIST"] = tags.Artist
	}
	return out, nil
}
