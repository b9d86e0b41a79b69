// Package detector models concrete segmented detectors as tile
// collections in the laboratory frame.
//
// Responsibilities: per-family constants (module counts, tile shapes,
// pixel size), building AGIPD-1M and LPD-1M geometries from quadrant
// positions, caching the snapped layout behind each geometry, pixel
// distortion arrays, and CrystFEL geometry file exchange.
// Key types: Spec, Geometry.
//
// Dependency rule: detector depends on geom, assemble, tensor and
// crystfel. Rendering and the CLI sit above it.
package detector
