package roi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRadii_FullResolution(t *testing.T) {
	radii := DefaultParams().Radii(3040)
	assert.Len(t, radii, 30)
	assert.Equal(t, 250, radii[0])
	assert.Equal(t, 279, radii[len(radii)-1])
}

func TestRadii_QuarterResolution(t *testing.T) {
	assert.Equal(t, []int{62, 63, 64, 65, 66, 67, 68, 69}, DefaultParams().Radii(760))
}

func TestRadii_EmptyBand(t *testing.T) {
	p := DefaultParams().WithRadiusBand(0.4, 0.4)
	assert.Empty(t, p.Radii(3040))
}

func TestWithCanny(t *testing.T) {
	base := DefaultParams()
	p := base.WithCanny(1.5, 20, 40)
	assert.Equal(t, 1.5, p.CannySigma)
	assert.Equal(t, float32(20), p.CannyLow)
	assert.Equal(t, float32(40), p.CannyHigh)
	// copy semantics
	assert.Equal(t, float64(3), base.CannySigma)
}
