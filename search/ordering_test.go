package search

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/eval"
	"github.com/bastion-go/bastion/fen"
	"github.com/bastion-go/bastion/movegen"
)

func TestOrderMovesByEvaluation(t *testing.T) {
	is := is.New(t)
	o := NewMoveOrderer(eval.DefaultWeights)
	p := fen.MustParse("3RG3/1r25/7/3r3b42/1b1BG4/4b12/7 r")
	moves := movegen.GenerateAll(p)

	ordered := o.OrderMoves(p, moves, true, 0, board.NoMove)
	is.Equal(len(ordered), len(moves))
	for i := 1; i < len(ordered); i++ {
		is.True(eval.Evaluate(p.ApplyMove(ordered[i-1])) >= eval.Evaluate(p.ApplyMove(ordered[i])))
	}

	p.ToMove = board.Blue
	moves = movegen.GenerateAll(p)
	ordered = o.OrderMoves(p, moves, false, 0, board.NoMove)
	for i := 1; i < len(ordered); i++ {
		is.True(eval.Evaluate(p.ApplyMove(ordered[i-1])) <= eval.Evaluate(p.ApplyMove(ordered[i])))
	}
}

func TestHintGoesFirst(t *testing.T) {
	is := is.New(t)
	o := NewMoveOrderer(eval.DefaultWeights)
	p := board.StartPosition()
	moves := movegen.GenerateAll(p)
	ordered := o.OrderMoves(p, moves, true, 0, board.NoMove)
	last := ordered[len(ordered)-1]

	hinted := o.OrderMoves(p, moves, true, 0, last)
	is.Equal(hinted[0], last)
	is.Equal(len(hinted), len(moves))

	// a hint that is not in the list changes nothing
	bogus := board.Move{From: 0, To: 48, Height: 7}
	is.Equal(o.OrderMoves(p, moves, true, 0, bogus), ordered)
}

func TestKillersOnlyAtTheirPly(t *testing.T) {
	is := is.New(t)
	o := NewMoveOrderer(eval.DefaultWeights)
	p := board.StartPosition()
	moves := movegen.GenerateAll(p)
	ordered := o.OrderMoves(p, moves, true, 3, board.NoMove)
	last := ordered[len(ordered)-1]
	secondLast := ordered[len(ordered)-2]

	o.UpdateKillerMove(secondLast, 3)
	o.UpdateKillerMove(last, 3)
	is.Equal(o.Killers(3), [MaxKillers]board.Move{last, secondLast})

	atPly := o.OrderMoves(p, moves, true, 3, board.NoMove)
	is.Equal(atPly[0], last)
	is.Equal(atPly[1], secondLast)

	elsewhere := o.OrderMoves(p, moves, true, 2, board.NoMove)
	is.Equal(elsewhere, ordered)

	// minimizing puts killers first too
	p.ToMove = board.Blue
	blue := movegen.GenerateAll(p)
	o.UpdateKillerMove(blue[0], 5)
	is.Equal(o.OrderMoves(p, blue, false, 5, board.NoMove)[0], blue[0])

	o.ResetKillerMoves()
	is.Equal(o.Killers(3), [MaxKillers]board.Move{})
	is.Equal(o.Killers(MaxPly), [MaxKillers]board.Move{})
}

func TestTimeBudget(t *testing.T) {
	is := is.New(t)
	base := time.Second
	p := board.StartPosition()
	// lots of moves, guards far away, nothing to take
	is.Equal(ComputeTimeBudget(p, movegen.GenerateAll(p), base), 3*base)

	p = fen.MustParse("7/7/3BG3/7/3RG3/7/7 r")
	budget := ComputeTimeBudget(p, movegen.GenerateAll(p), base)
	is.True(budget > time.Duration(2*base))
	is.True(budget <= time.Duration(MaxTimeFactor*float64(base)))

	is.Equal(ComputeTimeBudget(board.StartPosition(), nil, base), 2*base)
}
