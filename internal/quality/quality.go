package quality

import (
	"fmt"
	"strings"
)

// Unknown is the rank of any quality label that is not recognised.
const Unknown = -1

// Audio quality labels as reported by the catalog and stored in tags.
const (
	Low           = "LOW"
	High          = "HIGH"
	Lossless      = "LOSSLESS"
	HiRes         = "HI_RES"
	HiResLossless = "HI_RES_LOSSLESS"
)

var ranks = map[string]int{
	Low:           0,
	High:          1,
	Lossless:      2,
	HiRes:         3,
	HiResLossless: 4,
}

// Rank maps a quality label to its position in the total order
// LOW < HIGH < LOSSLESS < HI_RES < HI_RES_LOSSLESS.
//
// The lookup is case-insensitive and ignores surrounding whitespace.
// Unrecognised or empty labels rank as Unknown.
//
// Example:
//
//	quality.Rank("lossless") // 2
//	quality.Rank("DOLBY")    // -1
func Rank(label string) int {
	r, ok := ranks[strings.ToUpper(strings.TrimSpace(label))]
	if !ok {
		return Unknown
	}
	return r
}

// Setting is the user-selected audio quality.
type Setting int

const (
	Normal Setting = iota
	HighSetting
	HiFi
	Master
	Max
)

var settingNames = map[Setting]string{
	Normal:      "Normal",
	HighSetting: "High",
	HiFi:        "HiFi",
	Master:      "Master",
	Max:         "Max",
}

var settingLabels = map[Setting]string{
	Normal:      Low,
	HighSetting: High,
	HiFi:        Lossless,
	Master:      HiRes,
	Max:         HiResLossless,
}

// String returns the setting name as written in the settings file.
func (s Setting) String() string {
	if name, ok := settingNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Setting(%d)", int(s))
}

// Label returns the quality label the catalog expects for this setting.
func (s Setting) Label() string {
	if label, ok := settingLabels[s]; ok {
		return label
	}
	return Low
}

// DesiredRank is the rank a library file must reach to satisfy s.
func DesiredRank(s Setting) int {
	return Rank(s.Label())
}

// ParseSetting accepts a setting name ("HiFi"), its quality label
// ("LOSSLESS") or its ordinal ("2"), case-insensitively.
func ParseSetting(value string) (Setting, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for s, name := range settingNames {
		if strings.ToLower(name) == v || strings.ToLower(settingLabels[s]) == v || fmt.Sprint(int(s)) == v {
			return s, nil
		}
	}
	return Normal, fmt.Errorf("unknown audio quality %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (s Setting) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Setting) UnmarshalText(text []byte) error {
	parsed, err := ParseSetting(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// VideoSetting is the user-selected maximum video resolution.
type VideoSetting int

const (
	P240  VideoSetting = 240
	P360  VideoSetting = 360
	P480  VideoSetting = 480
	P720  VideoSetting = 720
	P1080 VideoSetting = 1080
)

// String returns the resolution in the "1080p" form.
func (v VideoSetting) String() string {
	return fmt.Sprintf("%dp", int(v))
}

// Height is the maximum vertical resolution in pixels.
func (v VideoSetting) Height() int { return int(v) }

// ParseVideoSetting accepts "720", "720p" or "P720".
func ParseVideoSetting(value string) (VideoSetting, error) {
	v := strings.Trim(strings.ToLower(strings.TrimSpace(value)), "p")
	for _, candidate := range []VideoSetting{P240, P360, P480, P720, P1080} {
		if fmt.Sprint(int(candidate)) == v {
			return candidate, nil
		}
	}
	return P1080, fmt.Errorf("unknown video quality %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (v VideoSetting) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *VideoSetting) UnmarshalText(text []byte) error {
	parsed, err := ParseVideoSetting(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
