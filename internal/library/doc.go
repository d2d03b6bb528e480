// Package library keeps a flat folder of downloaded tracks in line with
// the account's liked tracks.
//
// A sync run diffs the liked set against the track identifiers tagged in
// local files, downloads what is missing, moves unliked tracks into the
// _Removed folder, replaces copies below the configured quality when the
// catalog offers better, and finally normalizes the layout to
// "Title - Artist.ext" at the root.
//
// Quality reads go through a JSON cache keyed by path, mtime and size.
// Failures of individual tracks never abort a run; they are collected in
// a timestamped ledger file in the root.
package library
