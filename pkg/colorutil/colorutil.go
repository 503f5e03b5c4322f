// Package colorutil provides the overlay colors drawn on captures.
package colorutil

import "image/color"

// Overlay colors. gocv drawing functions take color.RGBA and convert to
// the Mat's BGR order themselves.
var (
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)
