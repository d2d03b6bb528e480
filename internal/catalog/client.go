package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	transport "github.com/handiism/tidal-downloader/internal/http"
	"github.com/handiism/tidal-downloader/internal/logging"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/quality"
)

// DefaultBaseURL is the catalog REST root.
const DefaultBaseURL = "https://api.tidal.com/v1/"

const pageSize = 100

var (
	// ErrNotFound is wrapped by every error caused by a 404 response.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedManifest is returned for playback manifests other
	// than the single-file BTS/EMU kinds.
	ErrUnsupportedManifest = errors.New("unsupported playback manifest")
)

// Options configures a Client.
type Options struct {
	BaseURL     string
	AccessToken string
	CountryCode string
	UserID      string
	Logger      *slog.Logger
}

// Client is a thin adapter over the catalog's v1 REST API. It is
// configured with an already-issued access token.
//
// Example:
//
//	c := catalog.NewClient(httpClient, catalog.Options{
//	    AccessToken: token,
//	    CountryCode: "US",
//	    UserID:      "12345",
//	})
//	track, err := c.Track(ctx, "77646169")
//	stream, err := c.StreamURL(ctx, track.ID, quality.HiFi)
type Client struct {
	http    *transport.Client
	baseURL *url.URL
	token   string
	country string
	userID  string
	logger  *slog.Logger
}

// NewClient creates a catalog client on top of an HTTP transport.
func NewClient(httpClient *transport.Client, opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(opts.BaseURL, "/") {
		opts.BaseURL += "/"
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog base url: %w", err)
	}
	if opts.CountryCode == "" {
		opts.CountryCode = "US"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Client{
		http:    httpClient,
		baseURL: base,
		token:   opts.AccessToken,
		country: opts.CountryCode,
		userID:  opts.UserID,
		logger:  opts.Logger,
	}, nil
}

// CoverURL returns the 1280x1280 JPEG URL for a cover ID.
func CoverURL(coverID string) string {
	return CoverURLSized(coverID, 1280, 1280)
}

// CoverURLSized returns the JPEG URL for a cover ID at the given size.
func CoverURLSized(coverID string, width, height int) string {
	return fmt.Sprintf("https://resources.tidal.com/images/%s/%dx%d.jpg",
		strings.ReplaceAll(coverID, "-", "/"), width, height)
}

// CoverURL is the method form of the package-level CoverURL.
func (c *Client) CoverURL(coverID string) string {
	return CoverURL(coverID)
}

// Track fetches a single track.
func (c *Client) Track(ctx context.Context, id string) (*model.Track, error) {
	var dto trackDTO
	if err := c.getJSON(ctx, "tracks/"+id, nil, &dto); err != nil {
		return nil, fmt.Errorf("track %s: %w", id, err)
	}
	return dto.toModel(), nil
}

// Album fetches a single album.
func (c *Client) Album(ctx context.Context, id string) (*model.Album, error) {
	var dto albumDTO
	if err := c.getJSON(ctx, "albums/"+id, nil, &dto); err != nil {
		return nil, fmt.Errorf("album %s: %w", id, err)
	}
	return dto.toModel(), nil
}

// Video fetches a single video.
func (c *Client) Video(ctx context.Context, id string) (*model.Video, error) {
	var dto videoDTO
	if err := c.getJSON(ctx, "videos/"+id, nil, &dto); err != nil {
		return nil, fmt.Errorf("video %s: %w", id, err)
	}
	return dto.toModel(), nil
}

// Playlist fetches playlist metadata.
func (c *Client) Playlist(ctx context.Context, uuid string) (*model.Playlist, error) {
	var dto playlistDTO
	if err := c.getJSON(ctx, "playlists/"+uuid, nil, &dto); err != nil {
		return nil, fmt.Errorf("playlist %s: %w", uuid, err)
	}
	return dto.toModel(), nil
}

// AlbumItems lists the tracks and videos of an album in album order.
func (c *Client) AlbumItems(ctx context.Context, id string) ([]*model.Track, []*model.Video, error) {
	tracks, videos, err := c.items(ctx, "albums/"+id+"/items")
	if err != nil {
		return nil, nil, fmt.Errorf("album %s items: %w", id, err)
	}
	return tracks, videos, nil
}

// PlaylistItems lists the tracks and videos of a playlist in playlist
// order.
func (c *Client) PlaylistItems(ctx context.Context, uuid string) ([]*model.Track, []*model.Video, error) {
	tracks, videos, err := c.items(ctx, "playlists/"+uuid+"/items")
	if err != nil {
		return nil, nil, fmt.Errorf("playlist %s items: %w", uuid, err)
	}
	return tracks, videos, nil
}

func (c *Client) items(ctx context.Context, path string) ([]*model.Track, []*model.Video, error) {
	raw, err := collect[itemDTO](ctx, c, path)
	if err != nil {
		return nil, nil, err
	}
	var tracks []*model.Track
	var videos []*model.Video
	for _, it := range raw {
		switch it.Type {
		case "track":
			var dto trackDTO
			if err := json.Unmarshal(it.Item, &dto); err != nil {
				return nil, nil, fmt.Errorf("decode track item: %w", err)
			}
			tracks = append(tracks, dto.toModel())
		case "video":
			var dto videoDTO
			if err := json.Unmarshal(it.Item, &dto); err != nil {
				return nil, nil, fmt.Errorf("decode video item: %w", err)
			}
			videos = append(videos, dto.toModel())
		}
	}
	return tracks, videos, nil
}

// StreamURL resolves a playable stream for a track at the requested
// quality. The catalog may answer with a lower quality than requested;
// Stream.SoundQuality reports what was actually granted.
func (c *Client) StreamURL(ctx context.Context, trackID string, q quality.Setting) (*model.Stream, error) {
	params := url.Values{
		"audioquality":      {q.Label()},
		"playbackmode":      {"STREAM"},
		"assetpresentation": {"FULL"},
	}
	var info playbackInfoDTO
	if err := c.getJSON(ctx, "tracks/"+trackID+"/playbackinfopostpaywall", params, &info); err != nil {
		return nil, fmt.Errorf("stream for track %s: %w", trackID, err)
	}

	manifest, err := decodeManifest(info)
	if err != nil {
		return nil, fmt.Errorf("stream for track %s: %w", trackID, err)
	}
	if len(manifest.URLs) == 0 {
		return nil, fmt.Errorf("stream for track %s: manifest has no urls", trackID)
	}

	stream := &model.Stream{
		TrackID:      trackID,
		SoundQuality: info.AudioQuality,
		Codec:        manifest.Codecs,
		BitDepth:     info.BitDepth,
		SampleRate:   info.SampleRate,
		URL:          manifest.URLs[0],
		URLs:         manifest.URLs,
	}
	if manifest.EncryptionType != "" && manifest.EncryptionType != "NONE" {
		stream.EncryptionKey = manifest.KeyID
	}
	return stream, nil
}

// VideoStreamURL resolves the HLS manifest of a video.
func (c *Client) VideoStreamURL(ctx context.Context, videoID string, q quality.VideoSetting) (*model.VideoStream, error) {
	params := url.Values{
		"videoquality":      {videoQualityParam(q)},
		"playbackmode":      {"STREAM"},
		"assetpresentation": {"FULL"},
	}
	var info playbackInfoDTO
	if err := c.getJSON(ctx, "videos/"+videoID+"/playbackinfopostpaywall", params, &info); err != nil {
		return nil, fmt.Errorf("stream for video %s: %w", videoID, err)
	}
	manifest, err := decodeManifest(info)
	if err != nil {
		return nil, fmt.Errorf("stream for video %s: %w", videoID, err)
	}
	if len(manifest.URLs) == 0 {
		return nil, fmt.Errorf("stream for video %s: manifest has no urls", videoID)
	}
	return &model.VideoStream{
		VideoID:    videoID,
		Codec:      manifest.Codecs,
		Resolution: q.String(),
		M3U8URL:    manifest.URLs[0],
	}, nil
}

func videoQualityParam(q quality.VideoSetting) string {
	switch {
	case q >= quality.P720:
		return "HIGH"
	case q >= quality.P360:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func decodeManifest(info playbackInfoDTO) (*btsManifest, error) {
	switch info.ManifestMimeType {
	case "application/vnd.tidal.bts", "application/vnd.tidal.emu":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedManifest, info.ManifestMimeType)
	}
	raw, err := base64.StdEncoding.DecodeString(info.Manifest)
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	var m btsManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Contributors lists the production and performance credits of a track.
func (c *Client) Contributors(ctx context.Context, trackID string) ([]model.Contributor, error) {
	raw, err := collect[contributorDTO](ctx, c, "tracks/"+trackID+"/contributors")
	if err != nil {
		return nil, fmt.Errorf("contributors for track %s: %w", trackID, err)
	}
	out := make([]model.Contributor, len(raw))
	for i, r := range raw {
		out[i] = model.Contributor{Name: r.Name, Role: r.Role}
	}
	return out, nil
}

// Lyrics fetches the plain and synced lyrics of a track.
func (c *Client) Lyrics(ctx context.Context, trackID string) (*model.Lyrics, error) {
	var dto lyricsDTO
	if err := c.getJSON(ctx, "tracks/"+trackID+"/lyrics", nil, &dto); err != nil {
		return nil, fmt.Errorf("lyrics for track %s: %w", trackID, err)
	}
	return &model.Lyrics{Text: dto.Lyrics, Subtitles: dto.Subtitles}, nil
}

// FavoriteTracks lists the user's liked tracks.
func (c *Client) FavoriteTracks(ctx context.Context) ([]*model.Track, error) {
	if err := c.requireUser(); err != nil {
		return nil, err
	}
	raw, err := collect[favoriteDTO](ctx, c, "users/"+c.userID+"/favorites/tracks")
	if err != nil {
		return nil, fmt.Errorf("favorite tracks: %w", err)
	}
	out := make([]*model.Track, len(raw))
	for i, r := range raw {
		out[i] = r.Item.toModel()
	}
	return out, nil
}

// OwnedPlaylists lists the playlists created by the user.
func (c *Client) OwnedPlaylists(ctx context.Context) ([]*model.Playlist, error) {
	if err := c.requireUser(); err != nil {
		return nil, err
	}
	raw, err := collect[playlistDTO](ctx, c, "users/"+c.userID+"/playlists")
	if err != nil {
		return nil, fmt.Errorf("owned playlists: %w", err)
	}
	out := make([]*model.Playlist, len(raw))
	for i, r := range raw {
		out[i] = r.toModel()
	}
	return out, nil
}

// CreatePlaylist creates an empty playlist owned by the user.
func (c *Client) CreatePlaylist(ctx context.Context, title, description string) (*model.Playlist, error) {
	if err := c.requireUser(); err != nil {
		return nil, err
	}
	form := url.Values{"title": {title}, "description": {description}}
	resp, err := c.send(ctx, http.MethodPost, "users/"+c.userID+"/playlists", nil, form, "")
	if err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	defer resp.Body.Close()

	var dto playlistDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("create playlist: decode: %w", err)
	}
	return dto.toModel(), nil
}

// ClearPlaylist removes every item from a playlist.
func (c *Client) ClearPlaylist(ctx context.Context, uuid string) error {
	etag, count, err := c.playlistState(ctx, uuid)
	if err != nil {
		return fmt.Errorf("clear playlist %s: %w", uuid, err)
	}
	if count == 0 {
		return nil
	}
	indices := make([]string, count)
	for i := range indices {
		indices[i] = itoa(i)
	}
	resp, err := c.send(ctx, http.MethodDelete, "playlists/"+uuid+"/items/"+strings.Join(indices, ","), nil, nil, etag)
	if err != nil {
		return fmt.Errorf("clear playlist %s: %w", uuid, err)
	}
	resp.Body.Close()
	return nil
}

// AddTracksToPlaylist appends tracks to a playlist in the given order.
func (c *Client) AddTracksToPlaylist(ctx context.Context, uuid string, trackIDs []string) error {
	for start := 0; start < len(trackIDs); start += pageSize {
		end := min(start+pageSize, len(trackIDs))
		etag, _, err := c.playlistState(ctx, uuid)
		if err != nil {
			return fmt.Errorf("add to playlist %s: %w", uuid, err)
		}
		form := url.Values{
			"trackIds": {strings.Join(trackIDs[start:end], ",")},
			"onDupes":  {"FAIL"},
		}
		resp, err := c.send(ctx, http.MethodPost, "playlists/"+uuid+"/items", nil, form, etag)
		if err != nil {
			return fmt.Errorf("add to playlist %s: %w", uuid, err)
		}
		resp.Body.Close()
	}
	return nil
}

// playlistState returns the ETag guarding playlist mutations and the
// current item count.
func (c *Client) playlistState(ctx context.Context, uuid string) (string, int, error) {
	resp, err := c.send(ctx, http.MethodGet, "playlists/"+uuid, nil, nil, "")
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	var dto playlistDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return "", 0, fmt.Errorf("decode playlist: %w", err)
	}
	return resp.Header.Get("ETag"), dto.NumberOfTracks + dto.NumberOfVideos, nil
}

func (c *Client) requireUser() error {
	if c.userID == "" {
		return errors.New("catalog user id not configured")
	}
	return nil
}

// collect walks every page of a paginated listing.
func collect[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	for offset := 0; ; offset += pageSize {
		params := url.Values{"limit": {itoa(pageSize)}, "offset": {itoa(offset)}}
		var page pageDTO[T]
		if err := c.getJSON(ctx, path, params, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if len(page.Items) < pageSize || len(out) >= page.TotalNumberOfItems {
			return out, nil
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	resp, err := c.send(ctx, http.MethodGet, path, params, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// send issues an authorized request. form, when non-nil, is sent
// url-encoded; etag, when set, guards the mutation with If-None-Match.
func (c *Client) send(ctx context.Context, method, path string, params, form url.Values, etag string) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	u := c.baseURL.ResolveReference(ref)
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("countryCode", c.country)
	u.RawQuery = q.Encode()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	c.logger.Debug("catalog request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &transport.StatusError{URL: u.String(), StatusCode: resp.StatusCode, Status: resp.Status}
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, statusErr)
		}
		return nil, fmt.Errorf("%w: %s", statusErr, strings.TrimSpace(string(detail)))
	}
	return resp, nil
}
