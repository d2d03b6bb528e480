// Package http is the transport shared by the catalog adapter and the
// download pipeline.
//
// Metadata and cover requests run under the client timeout. Stream
// segments are copied with a caller-sized buffer and rely on the context
// alone, so a long download is never cut off mid-file. Transient failures
// are retried with an exponential cooldown taken from RetryPolicy.
//
//	client := http.NewClient(http.Options{Retry: http.DefaultRetryPolicy()})
//	size, err := client.GetFileSize(ctx, stream.URL)
//	err = client.DownloadParts(ctx, stream.SegmentURLs(), partPath, 1<<20, onBytes)
package http
