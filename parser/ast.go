package parser

import "github.com/EngineHub/WorldEdit-sub015/lang"

// Position tracks a source location within an expression.
type Position struct {
	Offset int // zero-based byte offset
	Line   int // one-based line number
	Column int // one-based column number (rune count)
}

// Node represents any syntax tree node with a source position.
type Node interface {
	Pos() Position
}

// Program is the root of a parsed expression.
type Program struct {
	Body *BlockStmt
}

// Stmt represents a statement inside a block.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression.
type Expr interface {
	Node
	exprNode()
}

// IdentifierExpr is a free name. It stays unresolved until binding.
type IdentifierExpr struct {
	Name string
	Posn Position
}

func (e *IdentifierExpr) Pos() Position { return e.Posn }
func (*IdentifierExpr) exprNode()       {}

// NumberExpr is a numeric literal.
type NumberExpr struct {
	Value  float64
	Lexeme string
	Posn   Position
}

func (e *NumberExpr) Pos() Position { return e.Posn }
func (*NumberExpr) exprNode()       {}

// CallExpr invokes a built-in function. Func is the overload resolved while
// parsing.
type CallExpr struct {
	Name string
	Func *lang.Function
	Args []Expr
	Posn Position
}

func (e *CallExpr) Pos() Position { return e.Posn }
func (*CallExpr) exprNode()       {}

// UnaryExpr applies a prefix or postfix operator.
type UnaryExpr struct {
	Op   lang.Op
	X    Expr
	Posn Position
}

func (e *UnaryExpr) Pos() Position { return e.Posn }
func (*UnaryExpr) exprNode()       {}

// BinaryExpr applies an infix operator, assignments included.
type BinaryExpr struct {
	Op   lang.Op
	Lhs  Expr
	Rhs  Expr
	Posn Position
}

func (e *BinaryExpr) Pos() Position { return e.Posn }
func (*BinaryExpr) exprNode()       {}

// TernaryExpr is cond ? then : else.
type TernaryExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Posn Position
}

func (e *TernaryExpr) Pos() Position { return e.Posn }
func (*TernaryExpr) exprNode()       {}

// BlockStmt groups statements.
type BlockStmt struct {
	Stmts []Stmt
	Posn  Position
}

func (s *BlockStmt) Pos() Position { return s.Posn }
func (*BlockStmt) stmtNode()       {}

// ExprStmt wraps an expression evaluated for its value or effect.
type ExprStmt struct {
	Expr Expr
	Posn Position
}

func (s *ExprStmt) Pos() Position { return s.Posn }
func (*ExprStmt) stmtNode()       {}

// IfStmt is a conditional statement with an optional else branch.
type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt
	Posn Position
}

func (s *IfStmt) Pos() Position { return s.Posn }
func (*IfStmt) stmtNode()       {}

// WhileStmt is a while loop, or a do-while loop when DoWhile is set.
type WhileStmt struct {
	Cond    Expr
	Body    Stmt
	DoWhile bool
	Posn    Position
}

func (s *WhileStmt) Pos() Position { return s.Posn }
func (*WhileStmt) stmtNode()       {}

// ForStmt is the three-clause loop. Empty clauses are nil.
type ForStmt struct {
	Init Expr
	Cond Expr
	Step Expr
	Body Stmt
	Posn Position
}

func (s *ForStmt) Pos() Position { return s.Posn }
func (*ForStmt) stmtNode()       {}

// RangeForStmt is for (counter = first, last) body.
type RangeForStmt struct {
	Counter *IdentifierExpr
	First   Expr
	Last    Expr
	Body    Stmt
	Posn    Position
}

func (s *RangeForStmt) Pos() Position { return s.Posn }
func (*RangeForStmt) stmtNode()       {}

// CaseClause is one case label and the statements following it.
type CaseClause struct {
	Value float64
	Body  *BlockStmt
	Posn  Position
}

// SwitchStmt selects a case by exact numeric equality.
type SwitchStmt struct {
	Selector Expr
	Cases    []*CaseClause
	Default  *BlockStmt
	Posn     Position
}

func (s *SwitchStmt) Pos() Position { return s.Posn }
func (*SwitchStmt) stmtNode()       {}

// BranchStmt is break, or continue when Continue is set.
type BranchStmt struct {
	Continue bool
	Posn     Position
}

func (s *BranchStmt) Pos() Position { return s.Posn }
func (*BranchStmt) stmtNode()       {}

// ReturnStmt ends the evaluation with a value.
type ReturnStmt struct {
	Result Expr
	Posn   Position
}

func (s *ReturnStmt) Pos() Position { return s.Posn }
func (*ReturnStmt) stmtNode()       {}
