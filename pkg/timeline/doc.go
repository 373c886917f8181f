// Package timeline is the incident timeline layout engine.
//
// It maps operation records and an aggregated alert tree onto a shared,
// zoomable time axis:
//
//   - BuildTicks derives evenly spaced tick boundaries covering the data.
//   - Mapper converts timestamps to horizontal pixel positions inside a content
//     width that may exceed the visible viewport.
//   - ClusterRecords buckets records to their nearest tick and merges
//     temporally adjacent ones into markers.
//   - Flatten and PositionRows lay the alert tree out as horizontal bars.
//   - Viewport owns zoom and pan; LayoutMinimap keeps the condensed overview in
//     sync with it.
//
// Engine composes all of the above and recomputes synchronously on every
// input change. Nothing in this package starts goroutines or blocks.
package timeline
