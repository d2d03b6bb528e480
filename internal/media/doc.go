// Package media converts downloaded audio between containers and formats.
//
// # Remuxing
//
// A Chain tries Remuxer backends in order. The in-process MP4FLAC backend
// comes first and the ffmpeg process second:
//
//	chain := media.NewChain(media.NewMP4FLAC(), media.NewFFmpeg(""))
//	backend, err := chain.Remux(ctx, "decrypted.mp4", "remux.flac")
//
// # Transcoding
//
// FFmpeg.Transcode re-encodes into one of a fixed set of formats.
// Unknown formats fail with ErrUnsupportedFormat without running ffmpeg.
package media
