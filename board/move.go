package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidMove = errors.New("invalid move")

// A Move picks up Height pieces from the top of the stack on From and puts
// them on To. Height is also the number of squares travelled.
type Move struct {
	From   Square
	To     Square
	Height int8
}

// NoMove is returned when a side has no legal moves.
var NoMove = Move{}

func (m Move) IsNone() bool {
	return m.Height == 0
}

// String returns the move in A7-B7-1 notation.
func (m Move) String() string {
	if m.IsNone() {
		return "none"
	}
	return m.From.String() + "-" + m.To.String() + "-" + strconv.Itoa(int(m.Height))
}

// ParseMove parses a move in A7-B7-1 notation. It does not check legality.
func ParseMove(s string) (Move, error) {
	fields := strings.Split(strings.TrimSpace(s), "-")
	if len(fields) != 3 {
		return NoMove, fmt.Errorf("%w: %q must look like A7-B7-1", ErrInvalidMove, s)
	}
	from, err := SquareFromString(fields[0])
	if err != nil {
		return NoMove, err
	}
	to, err := SquareFromString(fields[1])
	if err != nil {
		return NoMove, err
	}
	h, err := strconv.Atoi(fields[2])
	if err != nil || h < 1 || h > MaxHeight {
		return NoMove, fmt.Errorf("%w: bad height %q", ErrInvalidMove, fields[2])
	}
	if from.File() != to.File() && from.Rank() != to.Rank() {
		return NoMove, fmt.Errorf("%w: %s is not orthogonal", ErrInvalidMove, s)
	}
	if Distance(from, to) != h {
		return NoMove, fmt.Errorf("%w: %s travels %d squares but carries %d",
			ErrInvalidMove, s, Distance(from, to), h)
	}
	return Move{From: from, To: to, Height: int8(h)}, nil
}
