// Package crystfel reads and writes CrystFEL-style structured-text
// geometry descriptions.
//
// The format is line oriented: "key = value" entries, ";" starting a
// comment, and panel-scoped entries written as "p<module>a<tile>/key".
// Only the geometric panel fields are interpreted; other entries are
// retained as opaque globals. Panel round-trips are exact: corner
// positions and scan vectors are written at full float64 precision.
package crystfel

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Panel is one tile's entry in a geometry file. Vector components are in
// (x, y, z) order; corner positions are in pixel units. Coffset carries
// the out-of-plane corner component.
type Panel struct {
	Module int
	Tile   int

	MinSS, MaxSS int // inclusive window into the raw module block
	MinFS, MaxFS int

	SS, FS [3]float64

	CornerX float64
	CornerY float64
	Coffset float64
}

// Name returns the panel's file identifier, p<module>a<tile>.
func (p Panel) Name() string {
	return fmt.Sprintf("p%da%d", p.Module, p.Tile)
}

// SSPixels returns the tile extent along the slow-scan axis.
func (p Panel) SSPixels() int {
	return p.MaxSS - p.MinSS + 1
}

// FSPixels returns the tile extent along the fast-scan axis.
func (p Panel) FSPixels() int {
	return p.MaxFS - p.MinFS + 1
}

// File is a parsed geometry description. Panels are ordered by module
// then tile.
type File struct {
	Panels  []Panel
	Globals map[string]string
}

// Header carries the file-level constants the writer emits ahead of the
// panel blocks.
type Header struct {
	Comments       []string // leading "; " lines
	PixelSize      float64  // metres; emitted as res = 1/PixelSize
	Modules        int
	TilesPerModule int
}

var panelNameRe = regexp.MustCompile(`^p(\d+)a(\d+)$`)

// mandatory lists the panel fields a loadable geometry must define.
var mandatory = []string{"min_fs", "min_ss", "max_fs", "max_ss", "fs", "ss", "corner_x", "corner_y", "coffset"}

// Parse reads a geometry description. Panels missing mandatory fields or
// malformed entries are errors; unknown panel fields are ignored.
func Parse(r io.Reader) (*File, error) {
	f := &File{Globals: make(map[string]string)}
	panels := make(map[string]*Panel)
	seen := make(map[string]map[string]bool)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: not a key = value entry: %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		name, field, scoped := strings.Cut(key, "/")
		if !scoped {
			f.Globals[key] = value
			continue
		}

		m := panelNameRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("line %d: panel name %q is not p<module>a<tile>", lineNo, name)
		}
		p := panels[name]
		if p == nil {
			module, _ := strconv.Atoi(m[1])
			tile, _ := strconv.Atoi(m[2])
			p = &Panel{Module: module, Tile: tile}
			panels[name] = p
			seen[name] = make(map[string]bool)
		}
		if err := p.setField(field, value); err != nil {
			return nil, fmt.Errorf("line %d: panel %s: %w", lineNo, name, err)
		}
		seen[name][field] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading geometry: %w", err)
	}
	if len(panels) == 0 {
		return nil, fmt.Errorf("no panel entries found")
	}

	for name, p := range panels {
		for _, field := range mandatory {
			if !seen[name][field] {
				return nil, fmt.Errorf("panel %s: missing %s", name, field)
			}
		}
		f.Panels = append(f.Panels, *p)
	}
	sort.Slice(f.Panels, func(i, j int) bool {
		if f.Panels[i].Module != f.Panels[j].Module {
			return f.Panels[i].Module < f.Panels[j].Module
		}
		return f.Panels[i].Tile < f.Panels[j].Tile
	})
	return f, nil
}

func (p *Panel) setField(field, value string) error {
	switch field {
	case "min_fs", "min_ss", "max_fs", "max_ss", "dim1":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		switch field {
		case "min_fs":
			p.MinFS = n
		case "min_ss":
			p.MinSS = n
		case "max_fs":
			p.MaxFS = n
		case "max_ss":
			p.MaxSS = n
		case "dim1":
			if n != p.Module {
				return fmt.Errorf("dim1 = %d does not match panel module %d", n, p.Module)
			}
		}
	case "corner_x", "corner_y", "coffset":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		switch field {
		case "corner_x":
			p.CornerX = v
		case "corner_y":
			p.CornerY = v
		case "coffset":
			p.Coffset = v
		}
	case "ss", "fs":
		v, err := ParseVec(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if field == "ss" {
			p.SS = v
		} else {
			p.FS = v
		}
	}
	// Unknown fields (clen, adu_per_eV, dim2, ...) pass through.
	return nil
}

// ParseVec reads a direction in component syntax, e.g. "+1.0x -0.002y".
// Omitted components are zero.
func ParseVec(s string) ([3]float64, error) {
	var v [3]float64
	toks := strings.Fields(s)
	if len(toks) == 0 {
		return v, fmt.Errorf("empty vector")
	}
	for _, tok := range toks {
		if len(tok) < 2 {
			return v, fmt.Errorf("bad vector component %q", tok)
		}
		val, err := strconv.ParseFloat(tok[:len(tok)-1], 64)
		if err != nil {
			return v, fmt.Errorf("bad vector component %q: %w", tok, err)
		}
		switch tok[len(tok)-1] {
		case 'x':
			v[0] = val
		case 'y':
			v[1] = val
		case 'z':
			v[2] = val
		default:
			return v, fmt.Errorf("bad vector axis in %q", tok)
		}
	}
	return v, nil
}

// FormatVec writes a direction in component syntax. The z component is
// omitted when zero, matching common geometry files.
func FormatVec(v [3]float64) string {
	s := formatComponent(v[0]) + "x " + formatComponent(v[1]) + "y"
	if v[2] != 0 {
		s += " " + formatComponent(v[2]) + "z"
	}
	return s
}

// formatComponent renders the shortest exact decimal with an explicit
// sign, padding integral values to one decimal place for readability.
func formatComponent(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}

// Write emits a geometry description: header comments, the frame-index
// dimension, the resolution line, rigid-group declarations partitioning
// panels per quadrant and per module, and one block per panel.
func Write(w io.Writer, hdr Header, panels []Panel) error {
	bw := bufio.NewWriter(w)

	for _, c := range hdr.Comments {
		fmt.Fprintf(bw, "; %s\n", c)
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "dim0 = %")
	fmt.Fprintf(bw, "res = %v ; %v um pixels\n", 1/hdr.PixelSize, hdr.PixelSize*1e6)
	fmt.Fprintln(bw)
	writeRigidGroups(bw, hdr.Modules, hdr.TilesPerModule)

	for _, p := range panels {
		name := p.Name()
		fmt.Fprintf(bw, "%s/dim1 = %d\n", name, p.Module)
		fmt.Fprintf(bw, "%s/dim2 = ss\n", name)
		fmt.Fprintf(bw, "%s/dim3 = fs\n", name)
		fmt.Fprintf(bw, "%s/min_fs = %d\n", name, p.MinFS)
		fmt.Fprintf(bw, "%s/min_ss = %d\n", name, p.MinSS)
		fmt.Fprintf(bw, "%s/max_fs = %d\n", name, p.MaxFS)
		fmt.Fprintf(bw, "%s/max_ss = %d\n", name, p.MaxSS)
		fmt.Fprintf(bw, "%s/fs = %s\n", name, FormatVec(p.FS))
		fmt.Fprintf(bw, "%s/ss = %s\n", name, FormatVec(p.SS))
		fmt.Fprintf(bw, "%s/corner_x = %v\n", name, p.CornerX)
		fmt.Fprintf(bw, "%s/corner_y = %v\n", name, p.CornerY)
		fmt.Fprintf(bw, "%s/coffset = %v\n", name, p.Coffset)
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// writeRigidGroups declares per-quadrant groups (four modules each, when
// the module count divides evenly) and per-module groups, then the two
// group collections.
func writeRigidGroups(bw *bufio.Writer, modules, tiles int) {
	quadSize := 4
	if modules%quadSize == 0 {
		for q := 0; q < modules/quadSize; q++ {
			names := make([]string, 0, quadSize*tiles)
			for m := q * quadSize; m < (q+1)*quadSize; m++ {
				for t := 0; t < tiles; t++ {
					names = append(names, fmt.Sprintf("p%da%d", m, t))
				}
			}
			fmt.Fprintf(bw, "rigid_group_q%d = %s\n", q, strings.Join(names, ","))
		}
		fmt.Fprintln(bw)
	}

	for m := 0; m < modules; m++ {
		names := make([]string, 0, tiles)
		for t := 0; t < tiles; t++ {
			names = append(names, fmt.Sprintf("p%da%d", m, t))
		}
		fmt.Fprintf(bw, "rigid_group_p%d = %s\n", m, strings.Join(names, ","))
	}
	fmt.Fprintln(bw)

	if modules%quadSize == 0 {
		quads := make([]string, modules/quadSize)
		for q := range quads {
			quads[q] = fmt.Sprintf("q%d", q)
		}
		fmt.Fprintf(bw, "rigid_group_collection_quadrants = %s\n", strings.Join(quads, ","))
	}
	mods := make([]string, modules)
	for m := range mods {
		mods[m] = fmt.Sprintf("p%d", m)
	}
	fmt.Fprintf(bw, "rigid_group_collection_asics = %s\n", strings.Join(mods, ","))
	fmt.Fprintln(bw)
}
