package catalog

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/handiism/tidal-downloader/internal/model"
)

// flexID accepts both numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// catalogTime parses the date formats the catalog mixes freely.
type catalogTime struct{ time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000+0000",
	"2006-01-02",
}

func (t *catalogTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

type artistDTO struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type albumRefDTO struct {
	ID    flexID `json:"id"`
	Title string `json:"title"`
	Cover string `json:"cover"`
}

type mediaMetadataDTO struct {
	Tags []string `json:"tags"`
}

type trackDTO struct {
	ID                    flexID           `json:"id"`
	Title                 string           `json:"title"`
	Version               string           `json:"version"`
	Duration              int              `json:"duration"`
	TrackNumber           int              `json:"trackNumber"`
	VolumeNumber          int              `json:"volumeNumber"`
	Explicit              bool             `json:"explicit"`
	ISRC                  string           `json:"isrc"`
	Copyright             string           `json:"copyright"`
	ReplayGain            float64          `json:"replayGain"`
	Peak                  float64          `json:"peak"`
	AudioQuality          string           `json:"audioQuality"`
	AudioModes            []string         `json:"audioModes"`
	Popularity            int              `json:"popularity"`
	StreamStartDate       catalogTime      `json:"streamStartDate"`
	MediaMetadata         mediaMetadataDTO `json:"mediaMetadata"`
	Artists               []artistDTO      `json:"artists"`
	Album                 albumRefDTO      `json:"album"`
	TrackNumberOnPlaylist int              `json:"trackNumberOnPlaylist"`
}

type albumDTO struct {
	ID              flexID           `json:"id"`
	Title           string           `json:"title"`
	Version         string           `json:"version"`
	Cover           string           `json:"cover"`
	ReleaseDate     catalogTime      `json:"releaseDate"`
	NumberOfTracks  int              `json:"numberOfTracks"`
	NumberOfVolumes int              `json:"numberOfVolumes"`
	Duration        int              `json:"duration"`
	Explicit        bool             `json:"explicit"`
	UPC             string           `json:"upc"`
	Copyright       string           `json:"copyright"`
	AudioQuality    string           `json:"audioQuality"`
	AudioModes      []string         `json:"audioModes"`
	Popularity      int              `json:"popularity"`
	StreamStartDate catalogTime      `json:"streamStartDate"`
	MediaMetadata   mediaMetadataDTO `json:"mediaMetadata"`
	Artists         []artistDTO      `json:"artists"`
}

type videoDTO struct {
	ID           flexID       `json:"id"`
	Title        string       `json:"title"`
	Duration     int          `json:"duration"`
	TrackNumber  int          `json:"trackNumber"`
	VolumeNumber int          `json:"volumeNumber"`
	Explicit     bool         `json:"explicit"`
	Quality      string       `json:"quality"`
	ReleaseDate  catalogTime  `json:"releaseDate"`
	Artists      []artistDTO  `json:"artists"`
	Album        *albumRefDTO `json:"album"`
}

type creatorDTO struct {
	ID flexID `json:"id"`
}

type playlistDTO struct {
	UUID           string      `json:"uuid"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	NumberOfTracks int         `json:"numberOfTracks"`
	NumberOfVideos int         `json:"numberOfVideos"`
	Duration       int         `json:"duration"`
	Created        catalogTime `json:"created"`
	LastUpdated    catalogTime `json:"lastUpdated"`
	Creator        creatorDTO  `json:"creator"`
}

type itemDTO struct {
	Type string          `json:"type"`
	Item json.RawMessage `json:"item"`
}

type pageDTO[T any] struct {
	Limit              int `json:"limit"`
	Offset             int `json:"offset"`
	TotalNumberOfItems int `json:"totalNumberOfItems"`
	Items              []T `json:"items"`
}

type favoriteDTO struct {
	Created catalogTime `json:"created"`
	Item    trackDTO    `json:"item"`
}

type contributorDTO struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type lyricsDTO struct {
	Lyrics    string `json:"lyrics"`
	Subtitles string `json:"subtitles"`
}

type playbackInfoDTO struct {
	TrackID          flexID `json:"trackId"`
	VideoID          flexID `json:"videoId"`
	AudioQuality     string `json:"audioQuality"`
	VideoQuality     string `json:"videoQuality"`
	ManifestMimeType string `json:"manifestMimeType"`
	Manifest         string `json:"manifest"`
	BitDepth         int    `json:"bitDepth"`
	SampleRate       int    `json:"sampleRate"`
}

// btsManifest is the decoded "application/vnd.tidal.bts" and
// "application/vnd.tidal.emu" manifest.
type btsManifest struct {
	MimeType       string   `json:"mimeType"`
	Codecs         string   `json:"codecs"`
	EncryptionType string   `json:"encryptionType"`
	KeyID          string   `json:"keyId"`
	URLs           []string `json:"urls"`
}

func (a artistDTO) toModel() model.Artist {
	return model.Artist{ID: string(a.ID), Name: a.Name, Type: a.Type}
}

func artistsToModel(in []artistDTO) []model.Artist {
	out := make([]model.Artist, len(in))
	for i, a := range in {
		out[i] = a.toModel()
	}
	return out
}

func (t trackDTO) toModel() *model.Track {
	return &model.Track{
		ID:                    string(t.ID),
		Title:                 t.Title,
		Version:               t.Version,
		Album:                 model.AlbumRef{ID: string(t.Album.ID), Title: t.Album.Title, Cover: t.Album.Cover},
		Artists:               artistsToModel(t.Artists),
		TrackNumber:           t.TrackNumber,
		VolumeNumber:          t.VolumeNumber,
		TrackNumberOnPlaylist: t.TrackNumberOnPlaylist,
		Duration:              t.Duration,
		Explicit:              t.Explicit,
		ISRC:                  t.ISRC,
		Copyright:             t.Copyright,
		ReplayGain:            t.ReplayGain,
		Peak:                  t.Peak,
		AudioQuality:          t.AudioQuality,
		AudioModes:            t.AudioModes,
		MediaTags:             t.MediaMetadata.Tags,
		Popularity:            t.Popularity,
		StreamStartDate:       t.StreamStartDate.Time,
	}
}

func (a albumDTO) toModel() *model.Album {
	return &model.Album{
		ID:              string(a.ID),
		Title:           a.Title,
		Version:         a.Version,
		Artists:         artistsToModel(a.Artists),
		Cover:           a.Cover,
		ReleaseDate:     a.ReleaseDate.Time,
		NumberOfTracks:  a.NumberOfTracks,
		NumberOfVolumes: a.NumberOfVolumes,
		Duration:        a.Duration,
		Explicit:        a.Explicit,
		UPC:             a.UPC,
		Copyright:       a.Copyright,
		AudioQuality:    a.AudioQuality,
		AudioModes:      a.AudioModes,
		MediaTags:       a.MediaMetadata.Tags,
		Popularity:      a.Popularity,
		StreamStartDate: a.StreamStartDate.Time,
	}
}

func (v videoDTO) toModel() *model.Video {
	video := &model.Video{
		ID:           string(v.ID),
		Title:        v.Title,
		Artists:      artistsToModel(v.Artists),
		TrackNumber:  v.TrackNumber,
		VolumeNumber: v.VolumeNumber,
		Duration:     v.Duration,
		Explicit:     v.Explicit,
		Quality:      v.Quality,
		ReleaseDate:  v.ReleaseDate.Time,
	}
	if v.Album != nil {
		video.Album = &model.AlbumRef{ID: string(v.Album.ID), Title: v.Album.Title, Cover: v.Album.Cover}
	}
	return video
}

func (p playlistDTO) toModel() *model.Playlist {
	return &model.Playlist{
		UUID:           p.UUID,
		Title:          p.Title,
		Description:    p.Description,
		NumberOfTracks: p.NumberOfTracks,
		NumberOfVideos: p.NumberOfVideos,
		Duration:       p.Duration,
		Created:        p.Created.Time,
		LastUpdated:    p.LastUpdated.Time,
		CreatorID:      string(p.Creator.ID),
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
