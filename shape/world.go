package shape

import (
	"math"
	"sync"
)

// Block is a legacy block id with its data value.
type Block struct {
	Type int `json:"type" yaml:"type"`
	Data int `json:"data" yaml:"data"`
}

// Blocks is an in-memory block store. Unset positions read as air. It is
// safe for concurrent use.
type Blocks struct {
	mu     sync.RWMutex
	blocks map[Point]Block
}

// NewBlocks returns an empty store.
func NewBlocks() *Blocks {
	return &Blocks{blocks: make(map[Point]Block)}
}

// Get returns the block at p.
func (b *Blocks) Get(p Point) Block {
	if b == nil {
		return Block{}
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.blocks[p]
}

// Set stores blk at p; air removes the entry.
func (b *Blocks) Set(p Point, blk Block) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if blk == (Block{}) {
		delete(b.blocks, p)
		return
	}
	b.blocks[p] = blk
}

// Len returns the number of non-air blocks.
func (b *Blocks) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blocks)
}

// World answers block queries against a Blocks store during generation.
// Plain queries take coordinates in the expression's scaled space, Abs
// queries take world positions and Rel queries take offsets from the voxel
// being evaluated. A World belongs to a single worker.
type World struct {
	blocks  *Blocks
	zero    Vec3
	unit    Vec3
	current Point
}

// NewWorld returns an environment over blocks using the given transform.
func NewWorld(blocks *Blocks, zero, unit Vec3) *World {
	return &World{blocks: blocks, zero: zero, unit: unit}
}

// SetCurrent moves the cursor used by relative queries.
func (w *World) SetCurrent(p Point) { w.current = p }

// Current returns the cursor used by relative queries.
func (w *World) Current() Point { return w.current }

// Scale maps a world position into the expression's coordinate space.
func (w *World) Scale(p Point) Vec3 {
	return Vec3{
		(float64(p.X) - w.zero.X) / w.unit.X,
		(float64(p.Y) - w.zero.Y) / w.unit.Y,
		(float64(p.Z) - w.zero.Z) / w.unit.Z,
	}
}

func blockPoint(x, y, z float64) Point {
	return Point{int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z))}
}

func (w *World) scaled(x, y, z float64) Block {
	return w.blocks.Get(blockPoint(x*w.unit.X+w.zero.X, y*w.unit.Y+w.zero.Y, z*w.unit.Z+w.zero.Z))
}

func (w *World) abs(x, y, z float64) Block {
	return w.blocks.Get(blockPoint(x, y, z))
}

func (w *World) rel(x, y, z float64) Block {
	c := w.current.vec()
	return w.blocks.Get(blockPoint(c.X+x, c.Y+y, c.Z+z))
}

func (w *World) BlockType(x, y, z float64) int    { return w.scaled(x, y, z).Type }
func (w *World) BlockData(x, y, z float64) int    { return w.scaled(x, y, z).Data }
func (w *World) BlockTypeAbs(x, y, z float64) int { return w.abs(x, y, z).Type }
func (w *World) BlockDataAbs(x, y, z float64) int { return w.abs(x, y, z).Data }
func (w *World) BlockTypeRel(x, y, z float64) int { return w.rel(x, y, z).Type }
func (w *World) BlockDataRel(x, y, z float64) int { return w.rel(x, y, z).Data }
