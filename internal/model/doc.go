// Package model defines the catalog entities handled by the downloader
// and the templates that place them on disk.
//
// # Entities
//
//   - Track, Video: single catalog items
//   - Album, Playlist: collections that provide folder context
//   - Stream, VideoStream: per-attempt download locators
//   - Contributor, Lyrics: best-effort extras written into tags
//
// # Paths
//
// PathConfig renders folder and file templates deterministically, which
// the existence check and the library sync both rely on:
//
//	cfg := &model.PathConfig{
//	    DownloadPath:      "/music",
//	    AlbumFolderFormat: "{ArtistName}/{AlbumTitle}",
//	    TrackFileFormat:   "{TrackNumber} - {TrackTitle}",
//	}
//	path := cfg.TrackPath(track, album, nil, ".flac", "")
//	// "/music/Artist/Album/01 - Title.flac"
//
// TrackExtension picks the published extension for a stream and an
// optional conversion format.
package model
