// Package movegen enumerates legal Guard & Towers moves from a position.
package movegen

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/bastion-go/bastion/board"
)

var ErrIllegalMove = errors.New("illegal move")

type direction int

const (
	north direction = iota
	south
	east
	west
	numDirections
)

var (
	// between[a][b] holds the squares strictly between two squares that share
	// a file or rank. It is zero for any other pair.
	between [board.NumSquares][board.NumSquares]board.Bitboard
	// sources[d][h] holds the squares a stack may leave in direction d when
	// travelling h squares without falling off the board.
	sources [numDirections][board.MaxHeight + 1]board.Bitboard
)

func init() {
	for a := board.Square(0); a < board.NumSquares; a++ {
		for b := board.Square(0); b < board.NumSquares; b++ {
			between[a][b] = pathBetween(a, b)
		}
	}
	for h := 1; h <= board.MaxHeight; h++ {
		for s := board.Square(0); s < board.NumSquares; s++ {
			f, r := s.File(), s.Rank()
			if r+h < board.Dim {
				sources[north][h] = sources[north][h].Set(s)
			}
			if r-h >= 0 {
				sources[south][h] = sources[south][h].Set(s)
			}
			if f+h < board.Dim {
				sources[east][h] = sources[east][h].Set(s)
			}
			if f-h >= 0 {
				sources[west][h] = sources[west][h].Set(s)
			}
		}
	}
}

func pathBetween(a, b board.Square) board.Bitboard {
	var mask board.Bitboard
	af, ar, bf, br := a.File(), a.Rank(), b.File(), b.Rank()
	switch {
	case af == bf && ar != br:
		first, last := min(ar, br), max(ar, br)
		for r := first + 1; r < last; r++ {
			mask = mask.Set(board.SquareAt(af, r))
		}
	case ar == br && af != bf:
		first, last := min(af, bf), max(af, bf)
		for f := first + 1; f < last; f++ {
			mask = mask.Set(board.SquareAt(f, ar))
		}
	}
	return mask
}

// Between returns the squares strictly between two squares on a common
// file or rank.
func Between(a, b board.Square) board.Bitboard {
	return between[a][b]
}

// shift moves every square in bb h squares in direction d. Callers mask the
// input with sources[d][h] first, so nothing wraps.
func shift(bb board.Bitboard, d direction, h int) board.Bitboard {
	switch d {
	case north:
		return (bb << (board.Dim * h)) & board.AllSquares
	case south:
		return bb >> (board.Dim * h)
	case east:
		return bb >> h
	default:
		return (bb << h) & board.AllSquares
	}
}

// delta is the index change of one move of h squares in direction d.
func delta(d direction, h int) int {
	switch d {
	case north:
		return board.Dim * h
	case south:
		return -board.Dim * h
	case east:
		return -h
	default:
		return h
	}
}

// GenerateAll returns every legal move for the side to move.
func GenerateAll(p board.Position) []board.Move {
	return GenerateFor(p, p.ToMove)
}

// GenerateFor returns every legal move side would have if it were on turn.
func GenerateFor(p board.Position, side board.Side) []board.Move {
	moves := make([]board.Move, 0, 48)
	own := p.Pieces[side]
	enemy := p.Pieces[side.Other()]
	ownGuard := p.GuardOf(side)
	occupied := p.Occupied()

	for h := 1; h <= board.MaxHeight; h++ {
		movers := p.Stack[h-1] & own &^ ownGuard
		if movers == 0 {
			break
		}
		blocked := ownGuard
		if h < board.MaxHeight {
			// enemy stacks taller than h cannot be taken
			blocked |= p.Stack[h] & enemy
		}
		for d := direction(0); d < numDirections; d++ {
			dests := shift(movers&sources[d][h], d, h) &^ blocked
			for dests != 0 {
				to := dests.Lowest()
				dests &= dests - 1
				from := board.Square(int(to) - delta(d, h))
				if between[from][to]&occupied != 0 {
					continue
				}
				moves = append(moves, board.Move{From: from, To: to, Height: int8(h)})
			}
		}
	}

	if ownGuard != 0 {
		for d := direction(0); d < numDirections; d++ {
			dests := shift(ownGuard&sources[d][1], d, 1) &^ own
			if dests != 0 {
				to := dests.Lowest()
				moves = append(moves, board.Move{
					From: board.Square(int(to) - delta(d, 1)), To: to, Height: 1})
			}
		}
	}
	return moves
}

// IsCapture reports whether m lands on an enemy piece.
func IsCapture(p board.Position, m board.Move) bool {
	return p.Pieces[p.ToMove.Other()].Has(m.To)
}

// GenerateNoisy returns the legal moves that take a guard, or take a tower
// no taller than the moving stack.
func GenerateNoisy(p board.Position) []board.Move {
	return lo.Filter(GenerateAll(p), func(m board.Move, _ int) bool {
		return IsNoisy(p, m)
	})
}

func IsNoisy(p board.Position, m board.Move) bool {
	if p.Guards.Has(m.To) {
		return true
	}
	return IsCapture(p, m) && int(m.Height) >= p.Height(m.To)
}

// CheckLegal returns an ErrIllegalMove error unless m is among the moves of
// the side to move.
func CheckLegal(p board.Position, m board.Move) error {
	if lo.Contains(GenerateAll(p), m) {
		return nil
	}
	return fmt.Errorf("%w: %v for %v", ErrIllegalMove, m, p.ToMove)
}
