package shape

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Point is an integer voxel position.
type Point struct {
	X, Y, Z int
}

func (p Point) add(dx, dy, dz int) Point {
	return Point{p.X + dx, p.Y + dy, p.Z + dz}
}

func (p Point) vec() Vec3 {
	return Vec3{float64(p.X), float64(p.Y), float64(p.Z)}
}

// Vec3 is a real-valued vector.
type Vec3 struct {
	X, Y, Z float64
}

// ParseVec3 parses "x,y,z".
func ParseVec3(s string) (Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var out [3]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("invalid coordinate %q: %w", part, err)
		}
		out[i] = v
	}
	return Vec3{out[0], out[1], out[2]}, nil
}

// Region is an inclusive box of voxels.
type Region struct {
	Min, Max Point
}

// NewRegion returns the box spanned by two corners in any order.
func NewRegion(a, b Point) Region {
	return Region{
		Min: Point{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)},
		Max: Point{max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)},
	}
}

// ParseRegion parses "x1,y1,z1:x2,y2,z2".
func ParseRegion(s string) (Region, error) {
	corners := strings.Split(s, ":")
	if len(corners) != 2 {
		return Region{}, fmt.Errorf("expected x1,y1,z1:x2,y2,z2, got %q", s)
	}
	var pts [2]Point
	for i, corner := range corners {
		parts := strings.Split(corner, ",")
		if len(parts) != 3 {
			return Region{}, fmt.Errorf("expected x,y,z, got %q", corner)
		}
		var c [3]int
		for j, part := range parts {
			v, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return Region{}, fmt.Errorf("invalid coordinate %q: %w", part, err)
			}
			c[j] = v
		}
		pts[i] = Point{c[0], c[1], c[2]}
	}
	return NewRegion(pts[0], pts[1]), nil
}

// Contains reports whether p lies in r.
func (r Region) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X &&
		p.Y >= r.Min.Y && p.Y <= r.Max.Y &&
		p.Z >= r.Min.Z && p.Z <= r.Max.Z
}

// Volume returns the number of voxels in r. ok is false when the count does
// not fit in an int or r is inverted.
func (r Region) Volume() (n int, ok bool) {
	total := uint64(1)
	for _, span := range [3][2]int{{r.Min.X, r.Max.X}, {r.Min.Y, r.Max.Y}, {r.Min.Z, r.Max.Z}} {
		if span[1] < span[0] {
			return 0, false
		}
		size := uint64(span[1]) - uint64(span[0]) + 1
		if size == 0 {
			return 0, false
		}
		hi, lo := bits.Mul64(total, size)
		if hi != 0 {
			return 0, false
		}
		total = lo
	}
	if total > math.MaxInt {
		return 0, false
	}
	return int(total), true
}

// Center returns the midpoint of r.
func (r Region) Center() Vec3 {
	return Vec3{
		float64(r.Min.X+r.Max.X) / 2,
		float64(r.Min.Y+r.Max.Y) / 2,
		float64(r.Min.Z+r.Max.Z) / 2,
	}
}

// Expand grows r by n voxels on every side.
func (r Region) Expand(n int) Region {
	return Region{Min: r.Min.add(-n, -n, -n), Max: r.Max.add(n, n, n)}
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d:%d,%d,%d", r.Min.X, r.Min.Y, r.Min.Z, r.Max.X, r.Max.Y, r.Max.Z)
}
