// Package shape evaluates an expression once per voxel of a region to build
// a shape, the way //generate does.
package shape

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EngineHub/WorldEdit-sub015/expression"
	"github.com/EngineHub/WorldEdit-sub015/lang"
)

// Params are the parameters of a shape expression, in order.
var Params = []string{"x", "y", "z", "type", "data"}

// DefaultMaxVolume is the voxel limit used when Options.MaxVolume is zero.
const DefaultMaxVolume = 1 << 24

// ErrTooLarge is returned for regions with more voxels than allowed.
var ErrTooLarge = errors.New("region too large")

// Options control a generation run.
type Options struct {
	// Zero and Unit map voxel positions to expression coordinates as
	// (p - Zero) / Unit. A zero Unit component is treated as 1.
	Zero, Unit Vec3
	// Timeout bounds each voxel evaluation; zero or negative disables it.
	Timeout time.Duration
	// Workers is the number of goroutines; zero uses GOMAXPROCS.
	Workers int
	// Hollow keeps only voxels with a neighbour outside the shape.
	Hollow bool
	// Default is the block passed in as type and data.
	Default Block
	// Blocks is the world queried by the query functions; it may be nil.
	Blocks *Blocks
	// MaxVolume caps the voxels evaluated, the hollow margin included;
	// zero uses DefaultMaxVolume.
	MaxVolume int
}

// Voxel is one generated block.
type Voxel struct {
	X     int `json:"x" yaml:"x"`
	Y     int `json:"y" yaml:"y"`
	Z     int `json:"z" yaml:"z"`
	Block `yaml:",inline"`
}

// Pos returns the voxel position.
func (v Voxel) Pos() Point { return Point{v.X, v.Y, v.Z} }

// TimeoutReport is returned with the generated voxels when some voxels ran
// out of time. Those voxels are left out of the result.
type TimeoutReport struct {
	Changed  int
	TimedOut int
}

func (r *TimeoutReport) Error() string {
	return fmt.Sprintf("%d blocks changed. %d blocks took too long to evaluate", r.Changed, r.TimedOut)
}

func (r *TimeoutReport) Is(target error) bool {
	return target == lang.ErrTimeout
}

// GenerateSource compiles src with Params and generates it over region.
func GenerateSource(ctx context.Context, src string, region Region, opts Options) ([]Voxel, error) {
	eopts := expression.DefaultOptions()
	eopts.Timeout = opts.Timeout
	expr, err := expression.CompileWith(src, eopts, Params...)
	if err != nil {
		return nil, err
	}
	return Generate(ctx, expr, region, opts)
}

// Generate evaluates expr for every voxel of region. A voxel is part of the
// shape when the expression returns a positive value; its block is read back
// from the type and data variables. expr must have been compiled with Params.
//
// Every worker evaluates its own clone of expr, so variables carried from
// one voxel to the next are only shared within a worker. expr itself is not
// modified.
func Generate(ctx context.Context, expr *expression.Expression, region Region, opts Options) ([]Voxel, error) {
	if err := checkParams(expr.Params()); err != nil {
		return nil, err
	}
	opts.Unit = normalizeUnit(opts.Unit)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	area := region
	if opts.Hollow {
		area = region.Expand(1)
	}
	if err := checkVolume(area, opts.MaxVolume); err != nil {
		return nil, err
	}
	g := newGrid(area)
	timedOut := make([]int, g.sizeX)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		gen := &generator{
			expr:   expr.Clone(),
			world:  NewWorld(opts.Blocks, opts.Zero, opts.Unit),
			region: region,
			opts:   opts,
		}
		eg.Go(func() error {
			for ix := range jobs {
				n, err := gen.slab(gctx, g, area.Min.X+ix)
				if err != nil {
					return err
				}
				timedOut[ix] = n
			}
			return nil
		})
	}
	// The feeder runs outside the group so that a failing worker cannot
	// leave it blocked on a send.
	go func() {
		defer close(jobs)
		for ix := 0; ix < g.sizeX; ix++ {
			select {
			case jobs <- ix:
			case <-gctx.Done():
				return
			}
		}
	}()
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	voxels := g.collect(region, opts.Hollow)
	report := &TimeoutReport{Changed: len(voxels)}
	for _, n := range timedOut {
		report.TimedOut += n
	}
	if report.TimedOut > 0 {
		return voxels, report
	}
	return voxels, nil
}

func checkParams(params []string) error {
	if len(params) != len(Params) {
		return fmt.Errorf("shape expressions take parameters %v, got %v", Params, params)
	}
	for i, name := range params {
		if name != Params[i] {
			return fmt.Errorf("shape expressions take parameters %v, got %v", Params, params)
		}
	}
	return nil
}

func checkVolume(area Region, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxVolume
	}
	n, ok := area.Volume()
	switch {
	case !ok:
		return fmt.Errorf("%w: %s has more voxels than fit in an int", ErrTooLarge, area)
	case n > limit:
		return fmt.Errorf("%w: %s has %d voxels, the limit is %d", ErrTooLarge, area, n, limit)
	}
	return nil
}

func normalizeUnit(u Vec3) Vec3 {
	if u.X == 0 {
		u.X = 1
	}
	if u.Y == 0 {
		u.Y = 1
	}
	if u.Z == 0 {
		u.Z = 1
	}
	return u
}

// generator is the per-worker state.
type generator struct {
	expr   *expression.Expression
	world  *World
	region Region
	opts   Options
	args   [5]float64
}

// slab evaluates every voxel with the given x and returns the number of
// timed-out evaluations inside the region. Timeouts in the hollow margin
// leave the neighbour counted as outside the shape.
func (gen *generator) slab(ctx context.Context, g *grid, x int) (int, error) {
	timedOut := 0
	for y := g.area.Min.Y; y <= g.area.Max.Y; y++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for z := g.area.Min.Z; z <= g.area.Max.Z; z++ {
			p := Point{x, y, z}
			blk, inside, err := gen.voxel(ctx, p)
			switch {
			case errors.Is(err, lang.ErrTimeout):
				if ctx.Err() != nil {
					return 0, ctx.Err()
				}
				if gen.region.Contains(p) {
					timedOut++
				}
			case err != nil:
				return 0, fmt.Errorf("voxel %d,%d,%d: %w", x, y, z, err)
			case inside:
				g.set(p, blk)
			}
		}
	}
	return timedOut, nil
}

func (gen *generator) voxel(ctx context.Context, p Point) (Block, bool, error) {
	gen.world.SetCurrent(p)
	s := gen.world.Scale(p)
	def := gen.opts.Default
	gen.args = [5]float64{s.X, s.Y, s.Z, float64(def.Type), float64(def.Data)}
	v, err := gen.expr.EvaluateWithin(ctx, gen.args[:], gen.world, gen.opts.Timeout)
	if err != nil {
		return Block{}, false, err
	}
	if !(v > 0) {
		return Block{}, false, nil
	}
	typ, _ := gen.expr.Variable("type")
	data, _ := gen.expr.Variable("data")
	return Block{Type: int(typ), Data: int(data)}, true, nil
}

// grid records which voxels of an area are inside the shape. Workers write
// disjoint x slabs.
type grid struct {
	area                Region
	sizeX, sizeY, sizeZ int
	inside              []bool
	blocks              []Block
}

func newGrid(area Region) *grid {
	g := &grid{
		area:  area,
		sizeX: area.Max.X - area.Min.X + 1,
		sizeY: area.Max.Y - area.Min.Y + 1,
		sizeZ: area.Max.Z - area.Min.Z + 1,
	}
	n := g.sizeX * g.sizeY * g.sizeZ
	g.inside = make([]bool, n)
	g.blocks = make([]Block, n)
	return g
}

func (g *grid) index(p Point) int {
	return ((p.X-g.area.Min.X)*g.sizeY+(p.Y-g.area.Min.Y))*g.sizeZ + (p.Z - g.area.Min.Z)
}

func (g *grid) set(p Point, blk Block) {
	i := g.index(p)
	g.inside[i] = true
	g.blocks[i] = blk
}

func (g *grid) isInside(p Point) bool {
	return g.area.Contains(p) && g.inside[g.index(p)]
}

func (g *grid) exposed(p Point) bool {
	return !g.isInside(p.add(1, 0, 0)) || !g.isInside(p.add(-1, 0, 0)) ||
		!g.isInside(p.add(0, 0, 1)) || !g.isInside(p.add(0, 0, -1)) ||
		!g.isInside(p.add(0, 1, 0)) || !g.isInside(p.add(0, -1, 0))
}

// collect lists the voxels of region in x, y, z order.
func (g *grid) collect(region Region, hollow bool) []Voxel {
	var out []Voxel
	for x := region.Min.X; x <= region.Max.X; x++ {
		for y := region.Min.Y; y <= region.Max.Y; y++ {
			for z := region.Min.Z; z <= region.Max.Z; z++ {
				p := Point{x, y, z}
				i := g.index(p)
				if !g.inside[i] {
					continue
				}
				if hollow && !g.exposed(p) {
					continue
				}
				out = append(out, Voxel{X: x, Y: y, Z: z, Block: g.blocks[i]})
			}
		}
	}
	return out
}
