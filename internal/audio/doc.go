// Package audio writes and reads the tags of published audio files and
// renders playlist files.
//
// # Tagging
//
// The Tagger maps catalog metadata onto a fixed schema (see Fields) and
// writes it with the container's native library:
//
//	covers := audio.NewCoverCache(httpClient, catalog.CoverURL)
//	tagger := audio.NewTagger(covers, logger)
//	tagger.Write(ctx, audio.WriteRequest{Track: track, Album: album, Stream: stream, Path: path})
//
// Every container that supports custom text receives the identity tags
// TIDAL_TRACK_ID, TIDAL_STREAM_SOUND_QUALITY and TIDAL_AUDIO_QUALITY.
// FLAC additionally receives the extended set: album and stream
// provenance, replay gain, CREDITS_<ROLE> and catalog URLs.
//
// # Reading
//
// The Reader returns only the identity:
//
//	id, err := audio.NewReader().ReadIdentity("/lib/Song - Artist.flac")
//	rank := quality.Rank(id.Quality())
//
// # Playlists
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U)
//	content := creator.CreatePlaylist(playlistPath, "Mix", entries)
//
// Supported formats:
//   - M3U (extended)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
