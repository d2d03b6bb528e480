// Package likes snapshots the account's liked tracks into playlists
// titled "Liked Songs DD-MM-YYYY", and refreshes existing snapshots.
package likes
