// Package download turns catalog items into tagged files on disk.
//
// # Transferer
//
// A Transferer runs one item through the pipeline:
//
//  1. Resolve the stream at the configured quality
//  2. Ask the Gate whether the file already on disk is good enough
//  3. Download every segment into a private workspace
//  4. Decrypt, remux FLAC out of MP4 and transcode as needed
//  5. Publish atomically to the final path
//  6. Write tags, best-effort
//
// Nothing is ever visible at the final path until it is complete, and
// the workspace is removed on every exit path.
//
// # Batch
//
// A Batch runs a Transferer over the items of an album or playlist,
// sequentially or with a bounded worker pool. A failing item is recorded
// as an ItemError and never stops its siblings.
//
// # Manager
//
// The Manager wires both from settings:
//
//	manager := download.NewManager(settings, components, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	summary, err := manager.Album(ctx, "12345", 1)
package download
