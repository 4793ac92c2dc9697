package facematch

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when two descriptors have different lengths.
	ErrDimensionMismatch = errors.New("descriptors must have the same length")

	// ErrInvalidDescriptor is returned when a descriptor has the wrong length or non-finite values.
	ErrInvalidDescriptor = errors.New("invalid face descriptor")
)

// EuclideanDistance computes the L2 distance between two descriptors.
// Accumulation happens in float64 so float32 storage does not skew results near the threshold.
func EuclideanDistance(a, b Descriptor) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum), nil
}

// IsMatch reports whether two descriptors are closer than threshold.
func IsMatch(a, b Descriptor, threshold float64) (bool, error) {
	d, err := EuclideanDistance(a, b)
	if err != nil {
		return false, err
	}
	return d < threshold, nil
}

// Validate checks raw values decoded from a request and converts them to a Descriptor.
// Exactly DescriptorDim finite numbers are required.
func Validate(values []float64) (Descriptor, error) {
	if len(values) != DescriptorDim {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidDescriptor, DescriptorDim, len(values))
	}

	d := make(Descriptor, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: value %d is not finite", ErrInvalidDescriptor, i)
		}
		d[i] = float32(v)
	}
	return d, nil
}

// Valid reports whether a stored descriptor can take part in matching.
func (d Descriptor) Valid() bool {
	if len(d) != DescriptorDim {
		return false
	}
	for _, v := range d {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Float64s returns the descriptor widened to float64, the form clients send it in.
func (d Descriptor) Float64s() []float64 {
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = float64(v)
	}
	return out
}
