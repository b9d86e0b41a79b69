package detector

import (
	"math"

	"github.com/detgeom/detgeom/internal/tensor"
)

// Corner traversal order for each pixel: (ss, fs) offsets from the
// pixel centre.
var (
	cornerSSOffsets = [4]float64{-0.5, 0.5, 0.5, -0.5}
	cornerFSOffsets = [4]float64{-0.5, -0.5, 0.5, 0.5}
)

// DistortionArray computes the lab-frame position of every pixel
// corner, shaped (Modules*RawSS, RawFS, 4, 3) with the last axis
// holding (z, y, x) in metres. Rows and columns follow the raw data
// layout, so entry [m*RawSS+ss][fs] describes the same pixel as raw
// datum [m][ss][fs]. The y and x components are shifted to start at
// zero; z is left untouched.
//
// Like fast assembly, this requires an axis-aligned geometry.
func (g *Geometry) DistortionArray() (*tensor.Array, error) {
	if _, err := g.SnappedLayout(); err != nil {
		return nil, err
	}
	out := g.distortion()
	shiftPlaneOrigin(out)
	return out, nil
}

// distortion evaluates the corner positions without the origin shift.
// Pixel centres sit at integer (ss, fs) steps from the tile corner
// position; corners at half-pixel offsets around them.
func (g *Geometry) distortion() *tensor.Array {
	s := g.spec
	out := tensor.New(s.Modules*s.RawSS, s.RawFS, 4, 3)
	data := out.Data()

	for m, tiles := range g.modules {
		moduleRow := m * s.RawSS
		for t, f := range tiles {
			blk := g.blocks[t]
			for ss := 0; ss < f.SSPixels; ss++ {
				row := moduleRow + blk.SSOff + ss
				for fs := 0; fs < f.FSPixels; fs++ {
					col := blk.FSOff + fs
					base := (row*s.RawFS + col) * 4 * 3
					for k := 0; k < 4; k++ {
						si := float64(ss) + cornerSSOffsets[k]
						fi := float64(fs) + cornerFSOffsets[k]
						x := (f.CornerPos.X + si*f.SSVec.X + fi*f.FSVec.X) * s.PixelSize
						y := (f.CornerPos.Y + si*f.SSVec.Y + fi*f.FSVec.Y) * s.PixelSize
						z := (f.CornerPos.Z + si*f.SSVec.Z + fi*f.FSVec.Z) * s.PixelSize
						data[base+k*3+0] = float32(z)
						data[base+k*3+1] = float32(y)
						data[base+k*3+2] = float32(x)
					}
				}
			}
		}
	}
	return out
}

// shiftPlaneOrigin moves the in-plane origin from the beam centre to
// the table corner: y and x each end up non-negative with minimum zero.
func shiftPlaneOrigin(a *tensor.Array) {
	data := a.Data()
	minY, minX := float32(math.Inf(1)), float32(math.Inf(1))
	for i := 0; i < len(data); i += 3 {
		if data[i+1] < minY {
			minY = data[i+1]
		}
		if data[i+2] < minX {
			minX = data[i+2]
		}
	}
	for i := 0; i < len(data); i += 3 {
		data[i+1] -= minY
		data[i+2] -= minX
	}
}
