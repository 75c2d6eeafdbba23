package parser

import (
	"github.com/EngineHub/WorldEdit-sub015/lang"
)

// Compile parses src and binds it against slots, folding constants when
// optimize is set. On error slots may hold variables defined before the
// failure.
func Compile(src string, slots *lang.Slots, optimize bool) (lang.Node, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	root, err := Bind(prog, slots)
	if err != nil {
		return nil, err
	}
	if optimize {
		root = lang.Optimize(root)
	}
	return root, nil
}
