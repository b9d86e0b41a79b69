// Package geom owns the tile-level geometry model for segmented area
// detectors.
//
// Responsibilities: describing a sensor tile (fragment) by its corner
// position and scan-axis vectors, and snapping axis-aligned tiles to
// exact integer pixel-grid placements.
// Key types: Vec3, Fragment, GridFragment.
//
// Dependency rule: geom is a leaf package. Detector models and
// assemblers build on it; it imports neither.
package geom
