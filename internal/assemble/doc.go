// Package assemble turns raw per-module detector data into 2D images.
//
// Responsibilities: the snapped fast-assembly layout (canvas sizing,
// centre offset, block placement) and the slower interpolating assembler
// for geometries that cannot snap to the pixel grid.
// Key types: TileBlock, Layout, Accurate.
//
// Dependency rule: assemble depends on geom and tensor only. Detector
// models construct Layouts; nothing here knows detector specifics beyond
// the raw block split handed in.
package assemble
