package index

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// EuclideanDistance is the metric used for every assignment decision.
func EuclideanDistance(a, b []float32) float32 {
	return vek32.Distance(a, b)
}

// squaredDistance matches the kd-tree's comparison metric.
func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// CosineDistance returns 1 - cos(a, b). A zero vector is maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 1.0
	}
	na := vek32.Dot(a, a)
	nb := vek32.Dot(b, b)
	if na == 0 || nb == 0 {
		return 1.0
	}
	dot := vek32.Dot(a, b)
	return 1 - float64(dot)/math.Sqrt(float64(na)*float64(nb))
}
