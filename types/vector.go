package types

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f32"
)

type Vec3 f32.Vec3

// Axis indices for accessing vector components.
const (
	XAxis = iota
	YAxis
	ZAxis
)

// Define a 3 component vector.
func XYZ(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// Create a vector with all components set to v.
func Splat(v float32) Vec3 {
	return Vec3{v, v, v}
}

// Add a vector.
func (v Vec3) Add(v2 Vec3) Vec3 {
	return Vec3{v[0] + v2[0], v[1] + v2[1], v[2] + v2[2]}
}

// Subtract a vector.
func (v Vec3) Sub(v2 Vec3) Vec3 {
	return Vec3{v[0] - v2[0], v[1] - v2[1], v[2] - v2[2]}
}

// Multiply a 3 component vector with a scalar.
func (v Vec3) Mul(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Get the largest vector component.
func (v Vec3) MaxComponent() float32 {
	return float32(math.Max(float64(v[0]), math.Max(float64(v[1]), float64(v[2]))))
}

// Returns true if no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Returns true if all components of v lie inside [min, max].
func (v Vec3) Within(min, max Vec3) bool {
	return v[0] >= min[0] && v[0] <= max[0] &&
		v[1] >= min[1] && v[1] <= max[1] &&
		v[2] >= min[2] && v[2] <= max[2]
}

// Implements Stringer.
func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}

// Calc min component from two vectors
func MinVec3(v1, v2 Vec3) Vec3 {
	out := v1
	if v2[0] < out[0] {
		out[0] = v2[0]
	}
	if v2[1] < out[1] {
		out[1] = v2[1]
	}
	if v2[2] < out[2] {
		out[2] = v2[2]
	}
	return out
}

// Calc maxcomponent from two vectors
func MaxVec3(v1, v2 Vec3) Vec3 {
	out := v1
	if v2[0] > out[0] {
		out[0] = v2[0]
	}
	if v2[1] > out[1] {
		out[1] = v2[1]
	}
	if v2[2] > out[2] {
		out[2] = v2[2]
	}
	return out
}

// Parse a vector from a "x,y,z" string.
func ParseVec3(s string) (Vec3, error) {
	var v Vec3
	n, err := fmt.Sscanf(s, "%g,%g,%g", &v[0], &v[1], &v[2])
	if err != nil || n != 3 {
		return Vec3{}, fmt.Errorf("types: could not parse %q as a x,y,z vector", s)
	}
	return v, nil
}
