// detgeom builds XFEL area detector geometries, reports their assembled
// layout and writes them out as CrystFEL geometry files, layout plots,
// demo frame renderings or raw distortion arrays.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/detgeom/detgeom/internal/detector"
	"github.com/detgeom/detgeom/internal/render"
	"github.com/detgeom/detgeom/internal/tensor"
	"github.com/detgeom/detgeom/internal/units"
	"github.com/detgeom/detgeom/internal/version"
)

var (
	family   = flag.String("detector", "agipd1m", "Detector family: agipd1m or lpd1m")
	quadsArg = flag.String("quads", "", "Quadrant positions as \"x0,y0;x1,y1;x2,y2;x3,y3\" in pixels (default: example positions for the family)")
	asicGap  = flag.Float64("asic-gap", math.NaN(), "Gap between tiles within a module, in pixels (default: family value)")
	panelGap = flag.Float64("panel-gap", math.NaN(), "Gap between modules within a quadrant, in pixels (default: family value)")

	geomOut       = flag.String("geom", "", "Write a CrystFEL geometry file to this path")
	inspectOut    = flag.String("inspect", "", "Write a layout plot to this path (png, pdf, svg)")
	frameOut      = flag.String("frame", "", "Render a demo frame to this path (png, pdf, svg)")
	axisUnits     = flag.String("axis-units", "px", "Axis units for the frame rendering: px or m")
	distortionOut = flag.String("distortion", "", "Write the raw float32 distortion array to this path")

	showVersion = flag.Bool("version", false, "Print version and exit")
)

// defaultQuads holds example quadrant positions per family, in pixel
// units relative to the beam centre.
var defaultQuads = map[string][4][2]float64{
	"agipd1m": {{-525, 625}, {-550, -10}, {520, -160}, {542.5, 475}},
	"lpd1m":   {{22.8, 598}, {-23, 16}, {509, -32}, {557, 550}},
}

// parseQuads parses four semicolon-separated "x,y" quadrant positions.
func parseQuads(s string) ([4][2]float64, error) {
	var quads [4][2]float64
	parts := strings.Split(s, ";")
	if len(parts) != 4 {
		return quads, fmt.Errorf("want 4 quadrant positions, got %d", len(parts))
	}
	for i, part := range parts {
		xy := strings.Split(part, ",")
		if len(xy) != 2 {
			return quads, fmt.Errorf("quadrant %d: want \"x,y\", got '%s'", i, part)
		}
		for j, c := range xy {
			v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
			if err != nil {
				return quads, fmt.Errorf("quadrant %d: invalid float '%s': %w", i, strings.TrimSpace(c), err)
			}
			quads[i][j] = v
		}
	}
	return quads, nil
}

// buildGeometry constructs the requested detector family from quadrant
// positions, falling back to the family's example positions and
// canonical gaps where flags are unset.
func buildGeometry(name, quadsSpec string, asicGap, panelGap float64) (*detector.Geometry, error) {
	quads, ok := defaultQuads[name]
	if !ok {
		return nil, fmt.Errorf("unknown detector '%s' (valid: agipd1m, lpd1m)", name)
	}
	if quadsSpec != "" {
		var err error
		quads, err = parseQuads(quadsSpec)
		if err != nil {
			return nil, err
		}
	}

	switch name {
	case "agipd1m":
		if math.IsNaN(asicGap) {
			asicGap = detector.AGIPD1MDefaultASICGap
		}
		if math.IsNaN(panelGap) {
			panelGap = detector.AGIPD1MDefaultPanelGap
		}
		return detector.AGIPD1MFromQuadPositions(quads, asicGap, panelGap)
	default:
		if math.IsNaN(asicGap) {
			asicGap = detector.LPD1MDefaultASICGap
		}
		if math.IsNaN(panelGap) {
			panelGap = detector.LPD1MDefaultPanelGap
		}
		return detector.LPD1MFromQuadPositions(quads, asicGap, panelGap)
	}
}

// demoFrame fills each module of a raw frame with its own index, so the
// rendering shows where every module lands on the canvas.
func demoFrame(g *detector.Geometry) *tensor.Array {
	rs := g.Spec().RawShape()
	data := tensor.New(rs[0], rs[1], rs[2])
	raw := data.Data()
	frame := rs[1] * rs[2]
	for m := 0; m < rs[0]; m++ {
		for i := 0; i < frame; i++ {
			raw[m*frame+i] = float32(m)
		}
	}
	return data
}

func writeGeomFile(g *detector.Geometry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := g.WriteCrystFEL(w); err != nil {
		return err
	}
	return w.Flush()
}

// writeDistortion dumps the per-pixel corner coordinates as raw
// little-endian float32 values in C order.
func writeDistortion(g *detector.Geometry, path string) error {
	d, err := g.DistortionArray()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, d.Data()); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Printf("wrote distortion array %v to %s", d.Shape(), path)
	return nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	g, err := buildGeometry(*family, *quadsArg, *asicGap, *panelGap)
	if err != nil {
		log.Fatalf("build geometry: %v", err)
	}

	layout, err := g.SnappedLayout()
	if err != nil {
		log.Fatalf("snap layout: %v", err)
	}
	size, centre := layout.Size(), layout.Centre()
	log.Printf("%s assembles onto a %dx%d px canvas, beam centre at row %d col %d",
		g.Spec().Name, size[0], size[1], centre[0], centre[1])

	if *geomOut != "" {
		if err := writeGeomFile(g, *geomOut); err != nil {
			log.Fatalf("write geometry file: %v", err)
		}
		log.Printf("wrote CrystFEL geometry to %s", *geomOut)
	}

	if *inspectOut != "" {
		if err := render.SaveInspection(g, *inspectOut); err != nil {
			log.Fatalf("write layout plot: %v", err)
		}
		log.Printf("wrote layout plot to %s", *inspectOut)
	}

	if *frameOut != "" {
		u, err := units.Parse(*axisUnits)
		if err != nil {
			log.Fatalf("axis units: %v", err)
		}
		if err := render.SaveFrame(g, demoFrame(g), u, *frameOut); err != nil {
			log.Fatalf("write frame rendering: %v", err)
		}
		log.Printf("wrote demo frame to %s", *frameOut)
	}

	if *distortionOut != "" {
		if err := writeDistortion(g, *distortionOut); err != nil {
			log.Fatalf("write distortion array: %v", err)
		}
	}
}
