package automatic

import (
	"context"
	"errors"

	"lukechampine.com/frand"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/eval"
	"github.com/bastion-go/bastion/movegen"
	"github.com/bastion-go/bastion/search"
)

var ErrNoMoves = errors.New("no legal moves")

// A Player chooses moves in self-play. Players are not safe for concurrent
// use; every worker builds its own.
type Player interface {
	Name() string
	// BestMove returns ErrNoMoves when the side to move cannot move.
	BestMove(ctx context.Context, p board.Position) (board.Move, error)
	// NewGame is called before every game.
	NewGame()
}

// SearchPlayer moves with a Solver, either on the clock or to a fixed depth.
type SearchPlayer struct {
	name   string
	solver *search.Solver
	depth  int
}

// NewSearchPlayer plays with solver. A depth above zero searches to exactly
// that depth instead of using the time manager.
func NewSearchPlayer(name string, solver *search.Solver, depth int) *SearchPlayer {
	return &SearchPlayer{name: name, solver: solver, depth: depth}
}

func (sp *SearchPlayer) Name() string {
	return sp.name
}

func (sp *SearchPlayer) Solver() *search.Solver {
	return sp.solver
}

func (sp *SearchPlayer) NewGame() {
	sp.solver.NewGame()
}

func (sp *SearchPlayer) BestMove(ctx context.Context, p board.Position) (board.Move, error) {
	if sp.depth > 0 {
		_, m, err := sp.solver.SearchDepth(ctx, p, sp.depth)
		if err != nil {
			return board.NoMove, err
		}
		if m.IsNone() {
			return board.NoMove, ErrNoMoves
		}
		return m, nil
	}
	res := sp.solver.PickMove(ctx, p)
	if res.Move.IsNone() {
		return board.NoMove, ErrNoMoves
	}
	return res.Move, ctx.Err()
}

// GreedyPlayer plays whatever move leads to the best static evaluation.
type GreedyPlayer struct {
	name      string
	evaluator eval.Evaluator
}

func NewGreedyPlayer(name string, e eval.Evaluator) *GreedyPlayer {
	return &GreedyPlayer{name: name, evaluator: e}
}

func (gp *GreedyPlayer) Name() string {
	return gp.name
}

func (gp *GreedyPlayer) NewGame() {}

func (gp *GreedyPlayer) BestMove(ctx context.Context, p board.Position) (board.Move, error) {
	moves := movegen.GenerateAll(p)
	if len(moves) == 0 {
		return board.NoMove, ErrNoMoves
	}
	sign := 1
	if p.ToMove == board.Blue {
		sign = -1
	}
	best, bestScore := moves[0], 0
	for i, m := range moves {
		score := sign * gp.evaluator.Evaluate(p.ApplyMove(m))
		if i == 0 || score > bestScore {
			best, bestScore = m, score
		}
	}
	return best, nil
}

// RandomPlayer picks uniformly among the legal moves.
type RandomPlayer struct {
	name string
	rng  *frand.RNG
}

// NewRandomPlayer seeds its generator from seed, so a game between random
// players replays exactly.
func NewRandomPlayer(name string, seed [32]byte) *RandomPlayer {
	return &RandomPlayer{name: name, rng: frand.NewCustom(seed[:], 32, 12)}
}

func (rp *RandomPlayer) Name() string {
	return rp.name
}

func (rp *RandomPlayer) NewGame() {}

func (rp *RandomPlayer) BestMove(ctx context.Context, p board.Position) (board.Move, error) {
	moves := movegen.GenerateAll(p)
	if len(moves) == 0 {
		return board.NoMove, ErrNoMoves
	}
	return moves[rp.rng.Intn(len(moves))], nil
}
