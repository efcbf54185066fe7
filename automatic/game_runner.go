// Package automatic plays computer vs computer games of Guard & Towers:
// single games, parallel matches, and the logs they leave behind.
package automatic

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/eval"
	"github.com/bastion-go/bastion/fen"
	"github.com/bastion-go/bastion/movegen"
)

const DefaultMoveLimit = 150

// a position seen this many times ends the game in a draw
const repetitionLimit = 3

type Outcome int

const (
	RedWins Outcome = iota
	BlueWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case RedWins:
		return "red"
	case BlueWins:
		return "blue"
	}
	return "draw"
}

func winFor(s board.Side) Outcome {
	if s == board.Red {
		return RedWins
	}
	return BlueWins
}

type EndReason int

const (
	ReasonWin EndReason = iota
	ReasonNoMoves
	ReasonMoveLimit
	ReasonRepetition
)

func (r EndReason) String() string {
	switch r {
	case ReasonWin:
		return "win"
	case ReasonNoMoves:
		return "no-moves"
	case ReasonMoveLimit:
		return "move-limit"
	case ReasonRepetition:
		return "repetition"
	}
	return "unknown"
}

// GameRecord is a finished game. FENs[i] is the position before Moves[i];
// the last FEN is the final position.
type GameRecord struct {
	ID      int
	Players [2]string
	Moves   []board.Move
	FENs    []string
	Outcome Outcome
	Reason  EndReason
}

func (g *GameRecord) Plies() int {
	return len(g.Moves)
}

// GameRunner plays one game at a time between two players.
type GameRunner struct {
	players   [2]Player
	moveLimit int
	// adjudicator decides games that hit the move limit
	adjudicator eval.Evaluator
	logchan     chan<- string
}

// NewGameRunner seats red and blue. A moveLimit of 0 means DefaultMoveLimit.
func NewGameRunner(red, blue Player, moveLimit int) *GameRunner {
	if moveLimit <= 0 {
		moveLimit = DefaultMoveLimit
	}
	r := &GameRunner{moveLimit: moveLimit, adjudicator: eval.DefaultWeights}
	r.players[board.Red] = red
	r.players[board.Blue] = blue
	return r
}

func (r *GameRunner) SetAdjudicator(e eval.Evaluator) {
	r.adjudicator = e
}

// SetLogChannel makes the runner send one CSV line per move to ch.
func (r *GameRunner) SetLogChannel(ch chan<- string) {
	r.logchan = ch
}

// Play runs a game from start until it is decided.
func (r *GameRunner) Play(ctx context.Context, id int, start board.Position) (*GameRecord, error) {
	for _, pl := range r.players {
		pl.NewGame()
	}
	rec := &GameRecord{
		ID:      id,
		Players: [2]string{r.players[board.Red].Name(), r.players[board.Blue].Name()},
	}
	seen := map[uint64]int{}
	p := start

	for {
		rec.FENs = append(rec.FENs, fen.String(p))
		seen[p.Hash()]++

		switch {
		case p.HasWon(board.Red):
			return r.finish(rec, RedWins, ReasonWin), nil
		case p.HasWon(board.Blue):
			return r.finish(rec, BlueWins, ReasonWin), nil
		case seen[p.Hash()] >= repetitionLimit:
			return r.finish(rec, Draw, ReasonRepetition), nil
		case rec.Plies() >= r.moveLimit:
			return r.finish(rec, r.adjudicate(p), ReasonMoveLimit), nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mover := r.players[p.ToMove]
		m, err := mover.BestMove(ctx, p)
		if errors.Is(err, ErrNoMoves) {
			return r.finish(rec, winFor(p.ToMove.Other()), ReasonNoMoves), nil
		}
		if err != nil {
			return nil, err
		}
		if err := movegen.CheckLegal(p, m); err != nil {
			return nil, fmt.Errorf("%s: %w", mover.Name(), err)
		}
		rec.Moves = append(rec.Moves, m)
		if r.logchan != nil {
			r.logchan <- fmt.Sprintf("%d,%d,%s,%s,%s\n", id, rec.Plies(), mover.Name(), p.ToMove, m)
		}
		p = p.ApplyMove(m)
	}
}

func (r *GameRunner) adjudicate(p board.Position) Outcome {
	v := r.adjudicator.Evaluate(p)
	switch {
	case v > 0:
		return RedWins
	case v < 0:
		return BlueWins
	}
	return Draw
}

func (r *GameRunner) finish(rec *GameRecord, o Outcome, reason EndReason) *GameRecord {
	rec.Outcome = o
	rec.Reason = reason
	log.Debug().Int("game", rec.ID).Str("red", rec.Players[0]).Str("blue", rec.Players[1]).
		Str("outcome", o.String()).Str("reason", reason.String()).
		Int("plies", rec.Plies()).Msg("game-over")
	return rec
}
