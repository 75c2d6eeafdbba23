package lang

// Environment answers block queries made by the query functions. Plain
// methods take coordinates in the caller's scaled space, Abs methods take
// absolute world coordinates and Rel methods take offsets from the block
// currently being evaluated.
type Environment interface {
	BlockType(x, y, z float64) int
	BlockData(x, y, z float64) int
	BlockTypeAbs(x, y, z float64) int
	BlockDataAbs(x, y, z float64) int
	BlockTypeRel(x, y, z float64) int
	BlockDataRel(x, y, z float64) int
}
