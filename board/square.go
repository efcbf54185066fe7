package board

import (
	"fmt"
	"math/bits"
	"strings"
)

const (
	// Dim is the number of files and ranks.
	Dim = 7
	// NumSquares is the number of squares on the board.
	NumSquares = Dim * Dim
	// MaxHeight is the tallest a tower can be.
	MaxHeight = 7
)

// A Square is an index into a Bitboard. Square 0 is G1 and square 48 is A7;
// index = rank*7 + (6-file), with files and ranks counted from 0.
type Square int8

const NoSquare Square = -1

// SquareAt returns the square at the 0-based file (A=0) and rank (1=0).
func SquareAt(file, rank int) Square {
	return Square(rank*Dim + (Dim - 1 - file))
}

func (s Square) File() int {
	return Dim - 1 - int(s)%Dim
}

func (s Square) Rank() int {
	return int(s) / Dim
}

func (s Square) Valid() bool {
	return s >= 0 && s < NumSquares
}

func (s Square) Bit() Bitboard {
	return Bitboard(1) << uint(s)
}

func (s Square) String() string {
	if !s.Valid() {
		return "--"
	}
	return string([]byte{byte('A' + s.File()), byte('1' + s.Rank())})
}

// Distance is the Manhattan distance between two squares.
func Distance(a, b Square) int {
	df := a.File() - b.File()
	dr := a.Rank() - b.Rank()
	if df < 0 {
		df = -df
	}
	if dr < 0 {
		dr = -dr
	}
	return df + dr
}

// SquareFromString parses coordinates such as "D7". Case is ignored.
func SquareFromString(s string) (Square, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("%w: bad square %q", ErrInvalidMove, s)
	}
	file := int(s[0] - 'A')
	rank := int(s[1] - '1')
	if file < 0 || file >= Dim || rank < 0 || rank >= Dim {
		return NoSquare, fmt.Errorf("%w: square %q is off the board", ErrInvalidMove, s)
	}
	return SquareAt(file, rank), nil
}

// A Bitboard is a set of squares, one bit per square.
type Bitboard uint64

// AllSquares has a bit set for every square on the board.
const AllSquares Bitboard = 1<<NumSquares - 1

func (b Bitboard) Has(s Square) bool {
	return b&s.Bit() != 0
}

func (b Bitboard) Set(s Square) Bitboard {
	return b | s.Bit()
}

func (b Bitboard) Clear(s Square) Bitboard {
	return b &^ s.Bit()
}

func (b Bitboard) Count() int {
	return bits.OnesCount64(uint64(b))
}

// Lowest returns the lowest-indexed square in the set, or NoSquare.
func (b Bitboard) Lowest() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// Squares lists the members of the set in ascending index order.
func (b Bitboard) Squares() []Square {
	sqs := make([]Square, 0, b.Count())
	for b != 0 {
		sqs = append(sqs, Square(bits.TrailingZeros64(uint64(b))))
		b &= b - 1
	}
	return sqs
}

// BitboardOf builds a set from a list of squares.
func BitboardOf(sqs ...Square) Bitboard {
	var b Bitboard
	for _, s := range sqs {
		b |= s.Bit()
	}
	return b
}
