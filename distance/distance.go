package distance

import (
	"fmt"
	"math"
	"sort"
)

// Metric identifies a distance function by its short query-time code.
type Metric string

const (
	// MetricEuclidean is the L2 distance, code "eu".
	MetricEuclidean Metric = "eu"
	// MetricManhattan is the L1 distance, code "l1".
	MetricManhattan Metric = "l1"
	// MetricCosine is the cosine distance, code "cs".
	MetricCosine Metric = "cs"
)

// eps guards the cosine denominator against zero-norm vectors. It is the
// float64 machine epsilon.
const eps = 2.220446049250313e-16

// ErrUnknownMetric is a named error type for unrecognized metric codes.
type ErrUnknownMetric struct {
	Code string
}

// Error returns the error message for an unknown metric code.
func (e *ErrUnknownMetric) Error() string {
	return fmt.Sprintf("unknown metric code: %q", e.Code)
}

// Parse resolves a short code to a Metric. It fails before any scan
// occurs so an unknown code never produces partial results.
func Parse(code string) (Metric, error) {
	switch Metric(code) {
	case MetricEuclidean, MetricManhattan, MetricCosine:
		return Metric(code), nil
	default:
		return "", &ErrUnknownMetric{Code: code}
	}
}

// Func is a distance function over two equal-length vectors.
type Func func(a, b []float64) float64

// Provider returns the distance function for the metric.
func Provider(m Metric) Func {
	switch m {
	case MetricManhattan:
		return Manhattan
	case MetricCosine:
		return Cosine
	default:
		return Euclidean
	}
}

// Euclidean calculates the L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Manhattan calculates the L1 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Manhattan(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// Cosine calculates the cosine distance 1 - dot(a,b)/(||a||*||b|| + eps).
// The eps term keeps zero-norm vectors from dividing by zero; their
// distance degenerates to 1.
func Cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)+eps)
}

// Hit pairs a record position with its distance from the query.
type Hit struct {
	Index    int
	Distance float64
}

// TopK scans every vector, computes the metric distance from query and
// returns the k nearest hits sorted ascending by distance. Ties keep
// their scan order. If k meets or exceeds the vector count, all hits
// are returned; a negative k is treated as zero.
func TopK(m Metric, query []float64, vectors [][]float64, k int) []Hit {
	if k < 0 {
		k = 0
	}
	fn := Provider(m)

	hits := make([]Hit, len(vectors))
	for i, v := range vectors {
		hits[i] = Hit{Index: i, Distance: fn(v, query)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}
