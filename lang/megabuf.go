package lang

import (
	"math"
	"sync"
)

const megabufBlock = 1024

// Megabuf is a sparse numeric array addressed by int32 index, stored in
// blocks of 1024 cells. Unwritten cells read as 0.
type Megabuf struct {
	blocks map[int32]*[megabufBlock]float64
}

// Get reads cell idx.
func (b *Megabuf) Get(idx int32) float64 {
	block := b.blocks[idx&^(megabufBlock-1)]
	if block == nil {
		return 0
	}
	return block[idx&(megabufBlock-1)]
}

// Set writes cell idx and returns v.
func (b *Megabuf) Set(idx int32, v float64) float64 {
	key := idx &^ (megabufBlock - 1)
	block := b.blocks[key]
	if block == nil {
		if b.blocks == nil {
			b.blocks = make(map[int32]*[megabufBlock]float64)
		}
		block = new([megabufBlock]float64)
		b.blocks[key] = block
	}
	block[idx&(megabufBlock-1)] = v
	return v
}

// Closest scans count points of three consecutive cells starting at index
// and advancing by stride, and returns the index of the point nearest to
// (x, y, z), or -1 when count is not positive. tick, when not nil, is called
// for every point and stops the scan with its error.
func (b *Megabuf) Closest(x, y, z float64, index, count, stride int32, tick func() error) (float64, error) {
	closest := int32(-1)
	best := math.MaxFloat64
	for i := int32(0); i < count; i++ {
		if tick != nil {
			if err := tick(); err != nil {
				return 0, err
			}
		}
		dx := b.Get(index) - x
		dy := b.Get(index+1) - y
		dz := b.Get(index+2) - z
		d := dx*dx + dy*dy + dz*dz
		if d < best {
			best = d
			closest = index
		}
		index += stride
	}
	return float64(closest), nil
}

// Reset drops every cell.
func (b *Megabuf) Reset() {
	b.blocks = nil
}

func (b *Megabuf) clone() Megabuf {
	if b.blocks == nil {
		return Megabuf{}
	}
	c := Megabuf{blocks: make(map[int32]*[megabufBlock]float64, len(b.blocks))}
	for key, block := range b.blocks {
		copied := *block
		c.blocks[key] = &copied
	}
	return c
}

// globalMegabuf backs gmegabuf and gclosest and is shared by every
// expression in the process.
var globalMegabuf struct {
	mu  sync.Mutex
	buf Megabuf
}

// ResetGlobalMegabuf clears the process-wide buffer.
func ResetGlobalMegabuf() {
	globalMegabuf.mu.Lock()
	globalMegabuf.buf.Reset()
	globalMegabuf.mu.Unlock()
}
