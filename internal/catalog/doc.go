// Package catalog is a thin client for the streaming catalog's v1 REST
// API: metadata lookups, stream resolution, favorites and playlist
// mutation.
//
// The client does not log in. It is configured with an access token,
// country code and user ID that were issued elsewhere:
//
//	c, err := catalog.NewClient(httpClient, catalog.Options{
//	    AccessToken: settings.AccessToken,
//	    CountryCode: settings.CountryCode,
//	    UserID:      settings.UserID,
//	})
//
// # Streams
//
// StreamURL decodes the base64 playback manifest into a model.Stream.
// Only single-file manifests (BTS for audio, EMU for video) are
// supported; anything else fails with ErrUnsupportedManifest.
//
// # Errors
//
// A 404 from any endpoint is reported as an error wrapping ErrNotFound:
//
//	if errors.Is(err, catalog.ErrNotFound) { ... }
package catalog
