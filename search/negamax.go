package search

import (
	"sort"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/common"
	"github.com/bastion-go/bastion/movegen"
)

// negamax returns the value of p for the side to move. depth is the
// remaining depth; ply is the distance from the root.
func (s *Solver) negamax(sc *searchContext, p board.Position, key uint64, depth, ply int,
	α, β int, pv *common.PVLine) int {

	sc.stats.Nodes++
	αOrig := α
	timeoutsAtEntry := sc.stats.Timeouts
	useTT := s.useTT()

	hint := board.NoMove
	if useTT {
		if entry, ok := s.ttable.Lookup(key); ok {
			hint = entry.Move()
			// The root always searches so that it has a line to report.
			if ply > 0 && entry.Depth() >= depth {
				score := entry.Score()
				switch entry.Flag() {
				case TTExact:
					sc.stats.TTHits++
					return score
				case TTLower:
					if score >= β {
						sc.stats.TTHits++
						return score
					}
				case TTUpper:
					if score <= α {
						sc.stats.TTHits++
						return score
					}
				}
			}
		}
	}

	if p.GameOver() {
		return s.staticScore(p)
	}

	if depth <= 0 || s.outOfTime(sc) {
		if depth > 0 {
			sc.stats.Timeouts++
		}
		var score int
		if s.mode == Minimax {
			score = s.quiesce(sc, p, -HugeNumber, HugeNumber)
		} else {
			score = s.quiesce(sc, p, α, β)
		}
		if useTT && depth <= 0 {
			s.ttable.Store(key, score, 0, boundFlag(score, αOrig, β), board.NoMove)
		}
		return score
	}

	moves := movegen.GenerateAll(p)
	if len(moves) == 0 {
		return s.staticScore(p)
	}
	if s.mode != Minimax {
		moves = sc.orderer.OrderMoves(p, moves, p.ToMove == board.Red, ply, hint)
	}

	best := -HugeNumber
	bestMove := board.NoMove
	childPV := &common.PVLine{}
	for i, m := range moves {
		child := p.ApplyMove(m)
		childKey := s.zobrist.AddMove(key, p, child, m)
		childPV.Clear()
		score := s.searchChild(sc, child, childKey, depth-1, ply+1, α, β, i == 0, childPV)
		if score > best {
			best = score
			bestMove = m
			pv.Update(m, *childPV, score)
		}
		if s.mode == Minimax {
			continue
		}
		if score > α {
			α = score
		}
		if α >= β {
			sc.stats.Cutoffs++
			if !movegen.IsCapture(p, m) {
				sc.orderer.UpdateKillerMove(m, ply)
			}
			break
		}
	}

	// A subtree cut short by the clock has an unreliable value.
	if useTT && sc.stats.Timeouts == timeoutsAtEntry {
		s.ttable.Store(key, best, depth, boundFlag(best, αOrig, β), bestMove)
	}
	return best
}

// searchChild returns the value of child from the parent's point of view.
// With PVS every move after the first gets a null-window search and a full
// re-search only if that score lands inside (α, β).
func (s *Solver) searchChild(sc *searchContext, child board.Position, key uint64, depth, ply int,
	α, β int, first bool, pv *common.PVLine) int {

	switch {
	case s.mode == Minimax:
		return -s.negamax(sc, child, key, depth, ply, -HugeNumber, HugeNumber, pv)
	case s.mode == PVS && !first:
		score := -s.negamax(sc, child, key, depth, ply, -α-1, -α, pv)
		if score > α && score < β {
			sc.stats.ReSearches++
			pv.Clear()
			score = -s.negamax(sc, child, key, depth, ply, -β, -α, pv)
		}
		return score
	default:
		return -s.negamax(sc, child, key, depth, ply, -β, -α, pv)
	}
}

func boundFlag(score, αOrig, β int) uint8 {
	switch {
	case score <= αOrig:
		return TTUpper
	case score >= β:
		return TTLower
	}
	return TTExact
}

// quiesce extends the search along noisy moves until the position is quiet.
// The side to move may always stand pat on the static evaluation.
func (s *Solver) quiesce(sc *searchContext, p board.Position, α, β int) int {
	sc.stats.QNodes++
	standPat := s.staticScore(p)
	if p.GameOver() {
		return standPat
	}
	if standPat >= β {
		return standPat
	}
	if standPat > α {
		α = standPat
	}

	for _, m := range orderNoisy(p, movegen.GenerateNoisy(p)) {
		var score int
		if s.mode == Minimax {
			score = -s.quiesce(sc, p.ApplyMove(m), -HugeNumber, HugeNumber)
		} else {
			score = -s.quiesce(sc, p.ApplyMove(m), -β, -α)
		}
		if score >= β {
			return score
		}
		if score > α {
			α = score
		}
	}
	return α
}

// orderNoisy puts guard captures first, then captures of the tallest towers.
func orderNoisy(p board.Position, moves []board.Move) []board.Move {
	victim := func(m board.Move) int {
		if p.Guards.Has(m.To) {
			return board.MaxHeight + 1
		}
		return p.Height(m.To)
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return victim(moves[i]) > victim(moves[j])
	})
	return moves
}
