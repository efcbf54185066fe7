package search

import (
	"time"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/eval"
)

const (
	MaxTimeFactor = 5.0

	mobilityWeight = 0.5
	pressureWeight = 0.8
	tensionWeight  = 0.6

	maxMobilityFactor = 2.0
	// guards further than this from their target add no pressure
	pressureRange = 6
)

// ComputeTimeBudget scales base by how complicated the position looks: many
// moves, guards close to their targets, and many captures available all ask
// for more time.
func ComputeTimeBudget(p board.Position, rootMoves []board.Move, base time.Duration) time.Duration {
	mobility := min(maxMobilityFactor, float64(len(rootMoves))/10)

	pressure := 0.0
	for _, side := range []board.Side{board.Red, board.Blue} {
		d := min(eval.GuardDistanceToTarget(p, side), pressureRange)
		pressure += 1 - float64(d)/pressureRange
	}

	enemy := p.Pieces[p.ToMove.Other()]
	captures := 0
	for _, m := range rootMoves {
		if enemy.Has(m.To) {
			captures++
		}
	}
	tension := float64(captures) / 10

	weighted := 1 + mobilityWeight*mobility + pressureWeight*pressure + tensionWeight*tension
	factor := min(MaxTimeFactor, 1+weighted)
	return time.Duration(float64(base) * factor)
}
