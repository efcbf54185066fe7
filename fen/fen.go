// Package fen reads and writes the compact position notation used by the
// game server: seven ranks separated by slashes, top rank first, followed by
// the side to move.
//
//	r1r11RG1r1r1/2r11r12/3r13/7/3b13/2b11b12/b1b11BG1b1b1 r
//
// A digit is a run of empty squares, rN and bN are towers of height N, and
// RG and BG are the guards.
package fen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bastion-go/bastion/board"
)

// StartFEN is the notation of board.StartPosition.
const StartFEN = "r1r11RG1r1r1/2r11r12/3r13/7/3b13/2b11b12/b1b11BG1b1b1 r"

var ErrInvalidFEN = errors.New("invalid position notation")

type tokenError struct {
	token string
	index int
	msg   string
}

func (e *tokenError) Error() string {
	return fmt.Sprintf("%v: token %q at index %d: %s", ErrInvalidFEN, e.token, e.index, e.msg)
}

func (e *tokenError) Unwrap() error {
	return ErrInvalidFEN
}

// Parse builds a position from its notation. It never substitutes a default
// position: any malformed token is reported along with its character index.
func Parse(s string) (board.Position, error) {
	var p board.Position
	s = strings.TrimSpace(s)
	sp := strings.LastIndexByte(s, ' ')
	if sp < 0 {
		return p, fmt.Errorf("%w: missing side to move", ErrInvalidFEN)
	}
	layout, side := strings.TrimSpace(s[:sp]), s[sp+1:]
	switch side {
	case "r":
		p.ToMove = board.Red
	case "b":
		p.ToMove = board.Blue
	default:
		return p, &tokenError{token: side, index: sp + 1, msg: "side to move must be r or b"}
	}

	rows := strings.Split(layout, "/")
	if len(rows) != board.Dim {
		return p, fmt.Errorf("%w: expected %d ranks, got %d", ErrInvalidFEN, board.Dim, len(rows))
	}
	offset := 0
	for ri, row := range rows {
		rank := board.Dim - 1 - ri
		if err := parseRank(&p, row, rank, offset); err != nil {
			return p, err
		}
		offset += len(row) + 1
	}
	p.Stack[0] = p.Pieces[board.Red] | p.Pieces[board.Blue]
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	}
	return p, nil
}

func parseRank(p *board.Position, row string, rank, offset int) error {
	file := 0
	place := func(side board.Side, height int, guard bool, tok string, idx int) error {
		if file >= board.Dim {
			return &tokenError{token: tok, index: idx, msg: fmt.Sprintf("rank %d has more than %d squares", rank+1, board.Dim)}
		}
		sq := board.SquareAt(file, rank)
		p.Pieces[side] = p.Pieces[side].Set(sq)
		if guard {
			p.Guards = p.Guards.Set(sq)
		}
		for k := 1; k < height; k++ {
			p.Stack[k] = p.Stack[k].Set(sq)
		}
		file++
		return nil
	}

	for i := 0; i < len(row); {
		c := row[i]
		idx := offset + i
		switch {
		case c >= '1' && c <= '7':
			file += int(c - '0')
			if file > board.Dim {
				return &tokenError{token: string(c), index: idx, msg: fmt.Sprintf("rank %d has more than %d squares", rank+1, board.Dim)}
			}
			i++
		case (c == 'r' || c == 'b') && i+1 < len(row):
			tok := row[i : i+2]
			h, err := strconv.Atoi(tok[1:])
			if err != nil || h < 1 || h > board.MaxHeight {
				return &tokenError{token: tok, index: idx, msg: "tower height must be 1-7"}
			}
			side := board.Red
			if c == 'b' {
				side = board.Blue
			}
			if err := place(side, h, false, tok, idx); err != nil {
				return err
			}
			i += 2
		case (c == 'R' || c == 'B') && i+1 < len(row) && row[i+1] == 'G':
			side := board.Red
			if c == 'B' {
				side = board.Blue
			}
			if err := place(side, 1, true, row[i:i+2], idx); err != nil {
				return err
			}
			i += 2
		default:
			return &tokenError{token: string(c), index: idx, msg: "unexpected character"}
		}
	}
	if file != board.Dim {
		return &tokenError{token: row, index: offset, msg: fmt.Sprintf("rank %d has %d squares", rank+1, file)}
	}
	return nil
}

// String prints the notation of a position.
func String(p board.Position) string {
	var sb strings.Builder
	for rank := board.Dim - 1; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < board.Dim; file++ {
			sq := board.SquareAt(file, rank)
			side, ok := p.Owner(sq)
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			switch {
			case p.Guards.Has(sq) && side == board.Red:
				sb.WriteString("RG")
			case p.Guards.Has(sq):
				sb.WriteString("BG")
			case side == board.Red:
				sb.WriteString("r" + strconv.Itoa(p.Height(sq)))
			default:
				sb.WriteString("b" + strconv.Itoa(p.Height(sq)))
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	if p.ToMove == board.Red {
		sb.WriteString(" r")
	} else {
		sb.WriteString(" b")
	}
	return sb.String()
}

// MustParse is Parse for notation known to be valid, such as test fixtures.
func MustParse(s string) board.Position {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}
