package search

import (
	"sort"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/eval"
)

// MaxPly bounds the killer table and therefore the deepest search.
const MaxPly = 64

const MaxKillers = 2

// Killer bonuses sit far above any evaluation, so killers are always tried
// right after the hint move. Slot 0 outranks slot 1.
var killerBonus = [MaxKillers]int{2_000_000, 1_000_000}

type scoredMove struct {
	move  board.Move
	score int
}

// MoveOrderer ranks moves by the evaluation of the position they lead to,
// promoting killer moves for the current ply.
type MoveOrderer struct {
	evaluator eval.Evaluator
	killers   [MaxPly][MaxKillers]board.Move
}

func NewMoveOrderer(e eval.Evaluator) *MoveOrderer {
	return &MoveOrderer{evaluator: e}
}

// OrderMoves returns a new slice with the best moves for the side to move
// first: highest score if maximizing, lowest otherwise. A hint found in the
// list always goes to the front.
func (o *MoveOrderer) OrderMoves(p board.Position, moves []board.Move, maximizing bool,
	ply int, hint board.Move) []board.Move {

	scored := make([]scoredMove, len(moves))
	for i, m := range moves {
		score := o.evaluator.Evaluate(p.ApplyMove(m))
		bonus := o.killerBonus(m, ply)
		if maximizing {
			score += bonus
		} else {
			score -= bonus
		}
		scored[i] = scoredMove{move: m, score: score}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if maximizing {
			return scored[i].score > scored[j].score
		}
		return scored[i].score < scored[j].score
	})

	ordered := make([]board.Move, 0, len(moves))
	if !hint.IsNone() {
		for _, sm := range scored {
			if sm.move == hint {
				ordered = append(ordered, hint)
				break
			}
		}
	}
	for _, sm := range scored {
		if len(ordered) > 0 && sm.move == ordered[0] {
			continue
		}
		ordered = append(ordered, sm.move)
	}
	return ordered
}

func (o *MoveOrderer) killerBonus(m board.Move, ply int) int {
	if ply < 0 || ply >= MaxPly {
		return 0
	}
	for slot, k := range o.killers[ply] {
		if k == m && !k.IsNone() {
			return killerBonus[slot]
		}
	}
	return 0
}

// UpdateKillerMove makes m the first killer at ply, pushing the previous
// first killer into the second slot.
func (o *MoveOrderer) UpdateKillerMove(m board.Move, ply int) {
	if ply < 0 || ply >= MaxPly || o.killers[ply][0] == m {
		return
	}
	o.killers[ply][1] = o.killers[ply][0]
	o.killers[ply][0] = m
}

func (o *MoveOrderer) Killers(ply int) [MaxKillers]board.Move {
	if ply < 0 || ply >= MaxPly {
		return [MaxKillers]board.Move{}
	}
	return o.killers[ply]
}

// ResetKillerMoves forgets every killer. Call it before each new search.
func (o *MoveOrderer) ResetKillerMoves() {
	o.killers = [MaxPly][MaxKillers]board.Move{}
}
