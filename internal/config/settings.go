package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/handiism/tidal-downloader/internal/audio"
	transport "github.com/handiism/tidal-downloader/internal/http"
	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/quality"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	DownloadPath          string               `json:"download_path" toml:"download_path"`
	LikedTracksPath       string               `json:"liked_tracks_path" toml:"liked_tracks_path"`
	AudioQuality          quality.Setting      `json:"audio_quality" toml:"audio_quality"`
	VideoQuality          quality.VideoSetting `json:"video_quality" toml:"video_quality"`
	AudioConvertFormat    string               `json:"audio_convert_format" toml:"audio_convert_format"` // alac, m4a, aac, flac, wav, mp3
	CheckExist            bool                 `json:"check_exist" toml:"check_exist"`
	MultiThread           bool                 `json:"multi_thread" toml:"multi_thread"`
	MaxConcurrentTracks   int                  `json:"max_concurrent_tracks" toml:"max_concurrent_tracks"`
	PartSize              int                  `json:"part_size" toml:"part_size"`
	DownloadMaxRetries    int                  `json:"download_max_retries" toml:"download_max_retries"`
	DownloadRetryCooldown float64              `json:"download_retry_cooldown" toml:"download_retry_cooldown"`
	DownloadRetryExponent float64              `json:"download_retry_exponent" toml:"download_retry_exponent"`
	RequestTimeout        float64              `json:"request_timeout" toml:"request_timeout"`

	// Console output
	ShowProgress  bool `json:"show_progress" toml:"show_progress"`
	ShowTrackInfo bool `json:"show_track_info" toml:"show_track_info"`

	// File naming
	AlbumFolderFormat    string `json:"album_folder_format" toml:"album_folder_format"`
	PlaylistFolderFormat string `json:"playlist_folder_format" toml:"playlist_folder_format"`
	TrackFileFormat      string `json:"track_file_format" toml:"track_file_format"`
	VideoFileFormat      string `json:"video_file_format" toml:"video_file_format"`
	UsePlaylistFolder    bool   `json:"use_playlist_folder" toml:"use_playlist_folder"`

	// Extras
	SaveCovers            bool                 `json:"save_covers" toml:"save_covers"`
	SaveAlbumInfo         bool                 `json:"save_album_info" toml:"save_album_info"`
	LyricFile             bool                 `json:"lyric_file" toml:"lyric_file"`
	CoverArtInTagsResize  bool                 `json:"cover_art_in_tags_resize" toml:"cover_art_in_tags_resize"`
	CoverArtInTagsMaxSize int                  `json:"cover_art_in_tags_max_size" toml:"cover_art_in_tags_max_size"`
	CreatePlaylist        bool                 `json:"create_playlist" toml:"create_playlist"`
	PlaylistFormat        audio.PlaylistFormat `json:"playlist_format" toml:"playlist_format"`

	// Catalog account
	CatalogBaseURL string `json:"catalog_base_url" toml:"catalog_base_url"`
	AccessToken    string `json:"access_token" toml:"access_token"`
	UserID         string `json:"user_id" toml:"user_id"`
	CountryCode    string `json:"country_code" toml:"country_code"`

	// Processing
	DecryptionKey string   `json:"decryption_key" toml:"decryption_key"`
	FFmpegPath    string   `json:"ffmpeg_path" toml:"ffmpeg_path"`
	RemuxBackends []string `json:"remux_backends" toml:"remux_backends"` // mp4, ffmpeg

	// Logging
	LogLevel  string `json:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" toml:"log_format"` // console, json
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		DownloadPath:          filepath.Join(homeDir, "Music", "TIDAL"),
		LikedTracksPath:       filepath.Join(homeDir, "Music", "TIDAL", "Liked Tracks"),
		AudioQuality:          quality.HiFi,
		VideoQuality:          quality.P1080,
		CheckExist:            true,
		MultiThread:           false,
		MaxConcurrentTracks:   5,
		PartSize:              1 << 20,
		DownloadMaxRetries:    7,
		DownloadRetryCooldown: 0.2,
		DownloadRetryExponent: 4.0,
		RequestTimeout:        60,

		ShowProgress:  true,
		ShowTrackInfo: true,

		AlbumFolderFormat:    "{ArtistName}/{Flag} {AlbumTitle} [{AlbumID}] [{AlbumYear}]",
		PlaylistFolderFormat: "Playlist/{PlaylistName} [{PlaylistUUID}]",
		TrackFileFormat:      "{TrackNumber} - {ArtistName} - {TrackTitle}{ExplicitFlag}",
		VideoFileFormat:      "{VideoNumber} - {ArtistName} - {VideoTitle}{ExplicitFlag}",

		SaveCovers:            true,
		SaveAlbumInfo:         false,
		LyricFile:             false,
		CoverArtInTagsResize:  false,
		CoverArtInTagsMaxSize: 1280,
		CreatePlaylist:        false,
		PlaylistFormat:        audio.FormatM3U,

		CountryCode: "US",

		FFmpegPath:    "ffmpeg",
		RemuxBackends: []string{"mp4", "ffmpeg"},

		LogLevel:  "info",
		LogFormat: "console",
	}
}

// DefaultPath is the settings file used when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "tidal-dl", "settings.json")
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads settings from a JSON or TOML file, chosen by extension.
// A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isTOML(path) {
		err = toml.Unmarshal(data, settings)
	} else {
		err = json.Unmarshal(data, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, settings.Validate()
}

// Save writes settings to a JSON or TOML file, chosen by extension.
func (s *Settings) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	// The file may hold an access token.
	return ioutils.WriteFileAtomic(path, data, 0o600)
}

// Validate rejects settings no component could work with.
func (s *Settings) Validate() error {
	if s.DownloadPath == "" {
		return fmt.Errorf("download_path is empty")
	}
	if s.MaxConcurrentTracks < 1 {
		return fmt.Errorf("max_concurrent_tracks must be at least 1, got %d", s.MaxConcurrentTracks)
	}
	for _, name := range s.RemuxBackends {
		if name != "mp4" && name != "ffmpeg" {
			return fmt.Errorf("unknown remux backend %q", name)
		}
	}
	return nil
}

// ToPathConfig converts settings to PathConfig.
func (s *Settings) ToPathConfig() *model.PathConfig {
	return &model.PathConfig{
		DownloadPath:         s.DownloadPath,
		AlbumFolderFormat:    s.AlbumFolderFormat,
		PlaylistFolderFormat: s.PlaylistFolderFormat,
		TrackFileFormat:      s.TrackFileFormat,
		VideoFileFormat:      s.VideoFileFormat,
		UsePlaylistFolder:    s.UsePlaylistFolder,
	}
}

// ToHTTPOptions converts the retry and timeout settings.
func (s *Settings) ToHTTPOptions() transport.Options {
	return transport.Options{
		Timeout: time.Duration(s.RequestTimeout * float64(time.Second)),
		Retry: transport.RetryPolicy{
			MaxRetries: s.DownloadMaxRetries,
			Cooldown:   time.Duration(s.DownloadRetryCooldown * float64(time.Second)),
			Exponent:   s.DownloadRetryExponent,
		},
	}
}
