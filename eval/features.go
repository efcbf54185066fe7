package eval

import (
	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/movegen"
)

// MaxDistance is the largest Manhattan distance on the board.
const MaxDistance = 2 * (board.Dim - 1)

// nearGuard is how close, in Manhattan distance, a piece must be to count
// as guarding or threatening a guard.
const nearGuard = 2

// centerSquares is the middle 3x3 block, C3 through E5.
var centerSquares board.Bitboard

func init() {
	for f := 2; f <= 4; f++ {
		for r := 2; r <= 4; r++ {
			centerSquares = centerSquares.Set(board.SquareAt(f, r))
		}
	}
}

// Features are the raw per-side counts the evaluation weighs.
type Features struct {
	Material      int
	ExtraLevels   int
	Center        int
	Aligned       int
	GuardDistance int
	Mobility      int
	Blocked       int
	Friends       int
	Enemies       int
}

// ExtractFeatures computes every feature for side, generating side's moves
// once for both mobility and blocked towers.
func ExtractFeatures(p board.Position, side board.Side) Features {
	moves := movegen.GenerateFor(p, side)
	return Features{
		Material:      Material(p, side),
		ExtraLevels:   ExtraTowerLevels(p, side),
		Center:        CenterControl(p, side),
		Aligned:       AlignedWithEnemyGuard(p, side),
		GuardDistance: GuardDistanceToTarget(p, side),
		Mobility:      len(moves),
		Blocked:       blockedFrom(p, side, moves),
		Friends:       FriendsNearGuard(p, side),
		Enemies:       EnemiesNearGuard(p, side),
	}
}

func Material(p board.Position, side board.Side) int {
	return p.CountPieces(side)
}

// ExtraTowerLevels counts the pieces of side stacked above the base layer.
func ExtraTowerLevels(p board.Position, side board.Side) int {
	n := 0
	for k := 1; k < board.MaxHeight; k++ {
		n += (p.Stack[k] & p.Pieces[side]).Count()
	}
	return n
}

func CenterControl(p board.Position, side board.Side) int {
	return (p.Pieces[side] & centerSquares).Count()
}

// AlignedWithEnemyGuard counts the squares of side on the enemy guard's
// file or rank.
func AlignedWithEnemyGuard(p board.Position, side board.Side) int {
	g := p.GuardSquare(side.Other())
	if g == board.NoSquare {
		return 0
	}
	n := 0
	for _, s := range p.Pieces[side].Squares() {
		if s.File() == g.File() || s.Rank() == g.Rank() {
			n++
		}
	}
	return n
}

// GuardDistanceToTarget is MaxDistance once the guard is gone.
func GuardDistanceToTarget(p board.Position, side board.Side) int {
	g := p.GuardSquare(side)
	if g == board.NoSquare {
		return MaxDistance
	}
	return board.Distance(g, board.Target(side))
}

// Mobility is the number of moves side would have if it were on turn.
func Mobility(p board.Position, side board.Side) int {
	return len(movegen.GenerateFor(p, side))
}

// BlockedTowers counts the squares of side that no legal move leaves from.
func BlockedTowers(p board.Position, side board.Side) int {
	return blockedFrom(p, side, movegen.GenerateFor(p, side))
}

func blockedFrom(p board.Position, side board.Side, moves []board.Move) int {
	var movable board.Bitboard
	for _, m := range moves {
		movable = movable.Set(m.From)
	}
	return (p.Pieces[side] &^ movable).Count()
}

// FriendsNearGuard counts the other squares of side near its own guard.
func FriendsNearGuard(p board.Position, side board.Side) int {
	return nearSquare(p, p.Pieces[side], side)
}

// EnemiesNearGuard counts enemy squares near side's guard.
func EnemiesNearGuard(p board.Position, side board.Side) int {
	return nearSquare(p, p.Pieces[side.Other()], side)
}

func nearSquare(p board.Position, bb board.Bitboard, side board.Side) int {
	g := p.GuardSquare(side)
	if g == board.NoSquare {
		return 0
	}
	n := 0
	for _, s := range bb.Clear(g).Squares() {
		if board.Distance(s, g) <= nearGuard {
			n++
		}
	}
	return n
}
