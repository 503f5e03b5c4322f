// Package rig describes the imaging rig: its resolutions and illumination
// modes.
package rig

import (
	"fmt"
	"strings"
)

const (
	// CameraResolution is the side of the square full-resolution capture.
	CameraResolution = 3040

	// DisplayResolution is the side of the square preview shown on the
	// rig's screen.
	DisplayResolution = 480
)

// Mode is the illumination used for a capture.
type Mode int

const (
	Color Mode = iota // white LEDs
	UV                // UV LEDs
)

func (m Mode) String() string {
	switch m {
	case Color:
		return "Color"
	case UV:
		return "UV"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Suffix is appended to file names of paired captures.
func (m Mode) Suffix() string {
	switch m {
	case UV:
		return "_UV"
	default:
		return "_color"
	}
}

// ParseMode accepts "color" or "uv" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "color", "colour":
		return Color, nil
	case "uv":
		return UV, nil
	}
	return Color, fmt.Errorf("unknown mode %q (want Color or UV)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
