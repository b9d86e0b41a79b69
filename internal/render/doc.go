// Package render draws detector geometry layouts and assembled frames.
//
// Responsibilities: tile layout plots with module labels, comparison
// plots showing how tiles move between two geometries, and colormapped
// images of assembled frame data with axes in pixels or metres.
// All plots are built with gonum/plot and returned to the caller, with
// Save helpers for writing image files directly.
//
// Dependency rule: render sits above detector; only the CLI imports it.
package render
