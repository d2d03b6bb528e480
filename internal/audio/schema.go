package audio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/handiism/tidal-downloader/internal/model"
)

// Identity tags. They are written into every container and are the only
// tags the library sync reads back.
const (
	TagTrackID            = "TIDAL_TRACK_ID"
	TagStreamSoundQuality = "TIDAL_STREAM_SOUND_QUALITY"
	TagAudioQuality       = "TIDAL_AUDIO_QUALITY"
)

// Extended FLAC tags.
const (
	tagTrackVersion       = "TIDAL_TRACK_VERSION"
	tagTrackPopularity    = "TIDAL_TRACK_POPULARITY"
	tagStreamStartDate    = "TIDAL_STREAM_START_DATE"
	tagExplicit           = "TIDAL_EXPLICIT"
	tagAudioModes         = "TIDAL_AUDIO_MODES"
	tagMediaMetadataTags  = "TIDAL_MEDIA_METADATA_TAGS"
	tagReplayGainGain     = "REPLAYGAIN_TRACK_GAIN"
	tagReplayGainPeak     = "REPLAYGAIN_TRACK_PEAK"
	tagAlbumID            = "TIDAL_ALBUM_ID"
	tagAlbumVersion       = "TIDAL_ALBUM_VERSION"
	tagBarcode            = "BARCODE"
	tagAlbumPopularity    = "TIDAL_ALBUM_POPULARITY"
	tagAlbumStreamStart   = "TIDAL_ALBUM_STREAM_START_DATE"
	tagAlbumAudioQuality  = "TIDAL_ALBUM_AUDIO_QUALITY"
	tagAlbumAudioModes    = "TIDAL_ALBUM_AUDIO_MODES"
	tagCodec              = "CODEC"
	tagBitsPerSample      = "BITS_PER_SAMPLE"
	tagSampleRate         = "SAMPLERATE"
	tagPlaylistTrackNum   = "TIDAL_PLAYLIST_TRACK_NUMBER"
	tagCredits            = "TIDAL_CREDITS"
	tagCreditsPrefix      = "CREDITS_"
	tagURL                = "URL"
	tagURLOfficialRelease = "URL_OFFICIAL_RELEASE_SITE"
)

// Identity is the provenance recorded in a published file.
type Identity struct {
	TrackID            string
	StreamSoundQuality string
	AudioQuality       string
	Title              string
	Artist             string
}

// Quality is the stream sound quality, falling back to the catalog's
// audio quality for files written before the stream tag existed.
func (id Identity) Quality() string {
	if id.StreamSoundQuality != "" {
		return id.StreamSoundQuality
	}
	return id.AudioQuality
}

// Comment is one key/value pair of a tag block.
type Comment struct {
	Key   string
	Value string
}

// Fields is the complete tag set built for one file.
//
// Baseline fields map onto native frames of every container. Identity is
// stored as custom text in every container; Extended only in FLAC.
type Fields struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Composer    string
	Copyright   string
	ISRC        string
	Date        string
	Lyrics      string
	TrackNumber int
	TrackTotal  int
	DiscNumber  int
	DiscTotal   int

	Identity []Comment
	Extended []Comment
	// Credits maps a normalized role token to de-duplicated names.
	Credits map[string][]string

	Cover []byte
}

// WriteRequest is the input of Tagger.Write.
type WriteRequest struct {
	Track        *model.Track
	Album        *model.Album
	Stream       *model.Stream
	Path         string
	Contributors []model.Contributor
	Lyrics       *model.Lyrics
}

// BuildFields maps a catalog track onto the tag schema.
func BuildFields(req WriteRequest) Fields {
	t := req.Track
	album := req.Album
	if album == nil {
		album = &model.Album{}
	}

	f := Fields{
		Title:       t.FullTitle(),
		Artist:      model.ArtistNames(t.Artists),
		Album:       t.Album.Title,
		AlbumArtist: model.ArtistNames(album.Artists),
		Composer:    strings.Join(rolesNamed(req.Contributors, "Composer"), ", "),
		Copyright:   firstNonEmpty(t.Copyright, album.Copyright),
		ISRC:        t.ISRC,
		TrackNumber: t.TrackNumber,
		DiscNumber:  t.VolumeNumber,
		DiscTotal:   album.NumberOfVolumes,
		Credits:     credits(req.Contributors),
	}
	if f.Album == "" {
		f.Album = album.Title
	}
	if !album.ReleaseDate.IsZero() {
		f.Date = album.ReleaseDate.Format("2006-01-02")
	}
	if album.NumberOfVolumes <= 1 {
		f.TrackTotal = album.NumberOfTracks
	}
	if req.Lyrics != nil {
		f.Lyrics = req.Lyrics.Subtitles
		if f.Lyrics == "" {
			f.Lyrics = req.Lyrics.Text
		}
	}

	f.Identity = []Comment{{TagTrackID, t.ID}, {TagAudioQuality, t.AudioQuality}}
	if req.Stream != nil {
		f.Identity = append(f.Identity, Comment{TagStreamSoundQuality, req.Stream.SoundQuality})
	}
	f.Extended = extended(req, album)
	return f
}

func extended(req WriteRequest, album *model.Album) []Comment {
	t := req.Track
	var c []Comment
	add := func(key, value string) {
		if value != "" {
			c = append(c, Comment{key, value})
		}
	}
	addAll := func(key string, values []string) {
		for _, v := range values {
			add(key, v)
		}
	}

	add(tagTrackVersion, t.Version)
	add(tagTrackPopularity, intString(t.Popularity))
	if !t.StreamStartDate.IsZero() {
		add(tagStreamStartDate, t.StreamStartDate.Format("2006-01-02"))
	}
	add(tagExplicit, boolFlag(t.Explicit))
	addAll(tagAudioModes, t.AudioModes)
	if len(t.MediaTags) > 0 {
		addAll(tagMediaMetadataTags, t.MediaTags)
	} else {
		addAll(tagMediaMetadataTags, album.MediaTags)
	}
	if t.ReplayGain != 0 || t.Peak != 0 {
		add(tagReplayGainGain, fmt.Sprintf("%.2f dB", t.ReplayGain))
		add(tagReplayGainPeak, fmt.Sprintf("%.6f", t.Peak))
	}

	add(tagAlbumID, album.ID)
	add(tagAlbumVersion, album.Version)
	add(tagBarcode, album.UPC)
	add(tagAlbumPopularity, intString(album.Popularity))
	if !album.StreamStartDate.IsZero() {
		add(tagAlbumStreamStart, album.StreamStartDate.Format("2006-01-02"))
	}
	add(tagAlbumAudioQuality, album.AudioQuality)
	addAll(tagAlbumAudioModes, album.AudioModes)

	if s := req.Stream; s != nil {
		add(tagCodec, s.Codec)
		add(tagBitsPerSample, intString(s.BitDepth))
		add(tagSampleRate, intString(s.SampleRate))
	}
	add(tagPlaylistTrackNum, intString(t.TrackNumberOnPlaylist))

	var all []string
	seen := map[string]bool{}
	for _, contributor := range req.Contributors {
		if contributor.Name != "" && !seen[contributor.Name] {
			seen[contributor.Name] = true
			all = append(all, contributor.Name)
		}
	}
	add(tagCredits, strings.Join(all, ", "))

	if t.ID != "" {
		add(tagURL, "https://listen.tidal.com/track/"+t.ID)
	}
	if album.ID != "" {
		add(tagURLOfficialRelease, "https://listen.tidal.com/album/"+album.ID)
	}
	return c
}

// RoleToken normalizes a credit role into a tag key suffix.
//
//	RoleToken("Mixing Engineer") // "MIXING_ENGINEER"
func RoleToken(role string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(role)), " ", "_")
}

func credits(contributors []model.Contributor) map[string][]string {
	out := map[string][]string{}
	for _, c := range contributors {
		token := RoleToken(c.Role)
		if token == "" || c.Name == "" {
			continue
		}
		dup := false
		for _, name := range out[token] {
			if name == c.Name {
				dup = true
				break
			}
		}
		if !dup {
			out[token] = append(out[token], c.Name)
		}
	}
	return out
}

func rolesNamed(contributors []model.Contributor, role string) []string {
	var names []string
	seen := map[string]bool{}
	for _, c := range contributors {
		if strings.EqualFold(c.Role, role) && c.Name != "" && !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
