// Package distance provides the distance metrics and exhaustive top-k
// selection used for nearest-neighbor queries.
//
// Metrics are selected by short code at query time:
//
//   - "eu": Euclidean distance
//   - "l1": Manhattan distance
//   - "cs": cosine distance, 1 - dot(a,b)/(||a||*||b|| + eps)
//
// Search is an exact full scan: every record is compared against the
// query and results are sorted ascending by distance with ties broken
// by scan order. There is no index and no approximation.
package distance
