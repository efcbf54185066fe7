// Package board contains the bitboard representation of a Guard & Towers
// position and the primitives that change it.
package board

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash"
)

type Side uint8

const (
	Red Side = iota
	Blue
)

func (s Side) Other() Side {
	return s ^ 1
}

func (s Side) String() string {
	if s == Red {
		return "red"
	}
	return "blue"
}

var (
	redHome  = SquareAt(3, 6) // D7
	blueHome = SquareAt(3, 0) // D1
)

// Home is the square a side's guard starts on.
func Home(s Side) Square {
	if s == Red {
		return redHome
	}
	return blueHome
}

// Target is the square a side's guard must reach to win.
func Target(s Side) Square {
	return Home(s.Other())
}

var ErrInvalidPosition = errors.New("invalid position")

// Position is the full game state. It is a plain value: assigning it copies
// it, and ApplyMove returns a new Position without touching the receiver.
//
// Stack[k] has a bit for every square whose stack is at least k+1 high.
// Guards only ever appear in Stack[0].
type Position struct {
	Pieces [2]Bitboard
	Guards Bitboard
	Stack  [MaxHeight]Bitboard
	ToMove Side
}

// StartPosition returns the initial layout, with red to move.
func StartPosition() Position {
	var p Position
	p.Pieces[Blue] = BitboardOf(0, 1, 3, 5, 6, 9, 11, 17)
	p.Pieces[Red] = BitboardOf(31, 37, 39, 42, 43, 45, 47, 48)
	p.Guards = blueHome.Bit() | redHome.Bit()
	p.Stack[0] = p.Pieces[Red] | p.Pieces[Blue]
	p.ToMove = Red
	return p
}

func (p Position) Copy() Position {
	return p
}

func (p Position) Equals(o Position) bool {
	return p == o
}

func (p Position) Occupied() Bitboard {
	return p.Stack[0]
}

// Height returns the number of pieces stacked on s.
func (p Position) Height(s Square) int {
	bit := s.Bit()
	h := 0
	for h < MaxHeight && p.Stack[h]&bit != 0 {
		h++
	}
	return h
}

// Owner reports which side has a piece on s.
func (p Position) Owner(s Square) (Side, bool) {
	switch {
	case p.Pieces[Red].Has(s):
		return Red, true
	case p.Pieces[Blue].Has(s):
		return Blue, true
	}
	return Red, false
}

func (p Position) GuardOf(s Side) Bitboard {
	return p.Guards & p.Pieces[s]
}

// GuardSquare returns the square of a side's guard, or NoSquare once it has
// been captured.
func (p Position) GuardSquare(s Side) Square {
	return p.GuardOf(s).Lowest()
}

// CountPieces counts every piece of a side, guard included, with each level
// of a tower counting once.
func (p Position) CountPieces(s Side) int {
	n := 0
	for _, layer := range p.Stack {
		n += (layer & p.Pieces[s]).Count()
	}
	return n
}

// HasWon reports whether s has put its guard on the enemy home square or
// captured the enemy guard.
func (p Position) HasWon(s Side) bool {
	if p.GuardOf(s)&Target(s).Bit() != 0 {
		return true
	}
	return p.GuardOf(s.Other()) == 0
}

// GameOver reports whether either side has won.
func (p Position) GameOver() bool {
	return p.HasWon(Red) || p.HasWon(Blue)
}

// ApplyMove plays m for the side to move and returns the resulting position.
// The move is assumed to be legal.
func (p Position) ApplyMove(m Move) Position {
	mover := p.ToMove
	from, to := m.From.Bit(), m.To.Bit()
	h := int(m.Height)

	// Lift the top h pieces off the source stack.
	lifted := 0
	for k := MaxHeight - 1; k >= 0 && lifted < h; k-- {
		if p.Stack[k]&from != 0 {
			p.Stack[k] &^= from
			lifted++
		}
	}
	enemy := p.Pieces[mover.Other()]
	if enemy&to != 0 {
		for k := range p.Stack {
			p.Stack[k] &^= to
		}
		p.Pieces[mover.Other()] = enemy &^ to
	}
	placed := 0
	for k := 0; k < MaxHeight && placed < h; k++ {
		if p.Stack[k]&to == 0 {
			p.Stack[k] |= to
			placed++
		}
	}

	own := p.Pieces[mover] | to
	p.Pieces[mover] = own & p.Stack[0]

	if p.Guards&from != 0 {
		p.Guards = p.Guards&^from | to
	} else if p.Guards&to != 0 {
		// a tower took the enemy guard
		p.Guards &^= to
	}
	p.ToMove = mover.Other()
	return p
}

// Hash is a structural hash of the position. It is not incremental; search
// code uses zobrist keys instead.
func (p Position) Hash() uint64 {
	var buf [8*(3+MaxHeight) + 1]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(p.Pieces[Red]))
	binary.LittleEndian.PutUint64(buf[8:], uint64(p.Pieces[Blue]))
	binary.LittleEndian.PutUint64(buf[16:], uint64(p.Guards))
	for k, layer := range p.Stack {
		binary.LittleEndian.PutUint64(buf[24+8*k:], uint64(layer))
	}
	buf[len(buf)-1] = byte(p.ToMove)
	return xxhash.Sum64(buf[:])
}

// Validate checks the structural invariants of the bitboards.
func (p Position) Validate() error {
	if p.Pieces[Red]&p.Pieces[Blue] != 0 {
		return fmt.Errorf("%w: squares %v owned by both sides", ErrInvalidPosition,
			(p.Pieces[Red] & p.Pieces[Blue]).Squares())
	}
	if p.Stack[0] != p.Pieces[Red]|p.Pieces[Blue] {
		return fmt.Errorf("%w: base layer does not match ownership", ErrInvalidPosition)
	}
	if p.Stack[0]&^AllSquares != 0 {
		return fmt.Errorf("%w: bits set off the board", ErrInvalidPosition)
	}
	for k := 1; k < MaxHeight; k++ {
		if p.Stack[k]&^p.Stack[k-1] != 0 {
			return fmt.Errorf("%w: layer %d is not nested in layer %d", ErrInvalidPosition, k+1, k)
		}
	}
	if p.Guards&^p.Stack[0] != 0 {
		return fmt.Errorf("%w: guard on an empty square", ErrInvalidPosition)
	}
	if p.Guards&p.Stack[1] != 0 {
		return fmt.Errorf("%w: guard stacked on a tower", ErrInvalidPosition)
	}
	for _, s := range []Side{Red, Blue} {
		if p.GuardOf(s).Count() > 1 {
			return fmt.Errorf("%w: %s has more than one guard", ErrInvalidPosition, s)
		}
	}
	if p.ToMove > Blue {
		return fmt.Errorf("%w: bad side to move %d", ErrInvalidPosition, p.ToMove)
	}
	return nil
}
