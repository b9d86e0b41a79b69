package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// gradientStops anchor the frame colormap, dark violet through teal to
// yellow. Intermediate shades blend in Luv space so the perceived
// brightness tracks the data value.
var gradientStops = []colorful.Color{
	{R: 0.267, G: 0.005, B: 0.329},
	{R: 0.128, G: 0.565, B: 0.551},
	{R: 0.993, G: 0.906, B: 0.144},
}

// sentinelGrey fills canvas pixels no tile covers.
var sentinelGrey = color.Gray{Y: 64}

// shade maps a normalised value onto the gradient. Values outside
// [0, 1] clamp to the end stops.
func shade(t float64) color.Color {
	if t <= 0 {
		return gradientStops[0]
	}
	if t >= 1 {
		return gradientStops[len(gradientStops)-1]
	}
	scaled := t * float64(len(gradientStops)-1)
	i := int(scaled)
	return gradientStops[i].BlendLuv(gradientStops[i+1], scaled-float64(i)).Clamped()
}
