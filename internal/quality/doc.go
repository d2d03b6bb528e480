// Package quality defines the ordering of audio quality labels and the
// user-facing quality settings.
//
// Labels form a total order used both when deciding whether an existing
// file is good enough and when picking library tracks to re-acquire:
//
//	LOW < HIGH < LOSSLESS < HI_RES < HI_RES_LOSSLESS
//
// Each Setting maps to exactly one label:
//
//	quality.DesiredRank(quality.HiFi) // quality.Rank("LOSSLESS") == 2
package quality
