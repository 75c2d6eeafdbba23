package lang

import (
	"fmt"
	"math"

	perlin "github.com/aquilax/go-perlin"
)

const maxOctaves = 30

// Ridged multifractal parameters.
const (
	ridgedLacunarity = 2
	ridgedOffset     = 1
	ridgedGain       = 2
)

type noiseKey struct {
	seed        int32
	octaves     int32
	persistence float64
}

// noiseGen returns the cached generator for key.
func (st *State) noiseGen(key noiseKey) *perlin.Perlin {
	gen := st.noise[key]
	if gen == nil {
		if st.noise == nil {
			st.noise = make(map[noiseKey]*perlin.Perlin)
		}
		gen = perlin.NewPerlin(1/key.persistence, 2, key.octaves, int64(key.seed))
		st.noise[key] = gen
	}
	return gen
}

func checkOctaves(octaves int32) error {
	if octaves < 1 || octaves > maxOctaves {
		return fmt.Errorf("octave count must be between 1 and %d, got %d", maxOctaves, octaves)
	}
	return nil
}

func checkFrequency(freq float64) error {
	if math.IsNaN(freq) || math.IsInf(freq, 0) {
		return fmt.Errorf("frequency must be finite, got %v", freq)
	}
	return nil
}

// primPerlin is perlin(seed, x, y, z, frequency, octaves, persistence).
func primPerlin(ev *Evaluator, args []Node) (float64, error) {
	a, err := nums(ev, args)
	if err != nil {
		return 0, err
	}
	key := noiseKey{seed: toInt32(a[0]), octaves: toInt32(a[5]), persistence: a[6]}
	freq := a[4]
	if err := checkOctaves(key.octaves); err != nil {
		return 0, err
	}
	if !(key.persistence > 0) || math.IsInf(key.persistence, 0) {
		return 0, fmt.Errorf("persistence must be positive, got %v", key.persistence)
	}
	if err := checkFrequency(freq); err != nil {
		return 0, err
	}
	return ev.st.noiseGen(key).Noise3D(a[1]*freq, a[2]*freq, a[3]*freq), nil
}

// primRidgedMulti is ridgedmulti(seed, x, y, z, frequency, octaves). Each
// octave folds a single-octave perlin layer seeded with seed+i into a ridge
// and weights it by the previous octave.
func primRidgedMulti(ev *Evaluator, args []Node) (float64, error) {
	a, err := nums(ev, args)
	if err != nil {
		return 0, err
	}
	seed, octaves, freq := toInt32(a[0]), toInt32(a[5]), a[4]
	if err := checkOctaves(octaves); err != nil {
		return 0, err
	}
	if err := checkFrequency(freq); err != nil {
		return 0, err
	}
	x, y, z := a[1]*freq, a[2]*freq, a[3]*freq
	value, weight, spectral := 0.0, 1.0, 1.0
	for i := int32(0); i < octaves; i++ {
		gen := ev.st.noiseGen(noiseKey{seed: seed + i, octaves: 1, persistence: 1})
		signal := ridgedOffset - math.Abs(gen.Noise3D(x, y, z))
		signal *= signal * weight
		weight = math.Max(0, math.Min(1, signal*ridgedGain))
		value += signal * spectral
		spectral /= ridgedLacunarity
		x, y, z = x*ridgedLacunarity, y*ridgedLacunarity, z*ridgedLacunarity
	}
	return value*1.25 - 1, nil
}

// primVoronoi is voronoi(seed, x, y, z, frequency): the value of the cell
// whose feature point lies nearest to the scaled position.
func primVoronoi(ev *Evaluator, args []Node) (float64, error) {
	a, err := nums(ev, args)
	if err != nil {
		return 0, err
	}
	freq := a[4]
	if err := checkFrequency(freq); err != nil {
		return 0, err
	}
	return voronoi(toInt32(a[0]), a[1]*freq, a[2]*freq, a[3]*freq), nil
}

// voronoi jitters one feature point into every unit cell. The jitter spans
// a whole cell either way, so the search covers two cells on each side.
func voronoi(seed int32, x, y, z float64) float64 {
	xi, yi, zi := toInt32(math.Floor(x)), toInt32(math.Floor(y)), toInt32(math.Floor(z))
	best := math.MaxFloat64
	var cx, cy, cz float64
	for dz := int32(-2); dz <= 2; dz++ {
		for dy := int32(-2); dy <= 2; dy++ {
			for dx := int32(-2); dx <= 2; dx++ {
				fx, fy, fz := featurePoint(xi+dx, yi+dy, zi+dz, seed)
				d := (fx-x)*(fx-x) + (fy-y)*(fy-y) + (fz-z)*(fz-z)
				if d < best {
					best = d
					cx, cy, cz = fx, fy, fz
				}
			}
		}
	}
	return valueNoise(toInt32(math.Floor(cx)), toInt32(math.Floor(cy)), toInt32(math.Floor(cz)), 0)
}

func featurePoint(x, y, z, seed int32) (float64, float64, float64) {
	return float64(x) + valueNoise(x, y, z, seed),
		float64(y) + valueNoise(x, y, z, seed+1),
		float64(z) + valueNoise(x, y, z, seed+2)
}

// valueNoise hashes a lattice point and seed into (-1, 1].
func valueNoise(x, y, z, seed int32) float64 {
	n := (1619*x + 31337*y + 6971*z + 1013*seed) & 0x7fffffff
	n = (n >> 13) ^ n
	n = (n*(n*n*60493+19990303) + 1376312589) & 0x7fffffff
	return 1 - float64(n)/1073741824
}
