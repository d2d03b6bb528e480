// Package ioutils provides the file system primitives shared by the
// download pipeline and the library sync.
//
// # Publishing
//
// ReplaceFile is the single way a finished file reaches its final path.
// It renames when possible and falls back to copy-then-rename across
// devices, so the destination is never left truncated:
//
//	err := ioutils.ReplaceFile(tmpPath, finalPath)
//
// WriteFileAtomic does the same for small in-memory documents such as
// the quality cache, cover.jpg and AlbumInfo.txt.
//
// # Naming
//
//	free := ioutils.UniquePath("/lib/Song - Artist.flac")
//	// "/lib/Song - Artist (2).flac" if the name is already taken
//
// # Images
//
//	svc := ioutils.NewImageService(90)
//	small, _ := svc.Fit(coverBytes, 640)
package ioutils
