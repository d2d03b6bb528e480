// Package config loads and saves the tidal-dl settings file.
//
// A file ending in ".toml" is read as TOML, any other as JSON. A missing
// file yields DefaultSettings, which download to ~/Music/TIDAL at HiFi and
// keep the liked-tracks library in ~/Music/TIDAL/Liked Tracks.
//
//	settings, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    return err
//	}
//	settings.AudioQuality = quality.Max
//	paths := settings.ToPathConfig()
//
// Validate rejects settings the pipeline cannot run with, such as an
// unknown remux backend name.
package config
