// Package search picks moves with an iterative-deepening negamax search:
// alpha-beta or principal variation search, quiescence at the horizon, a
// transposition table and killer-move ordering.
package search

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/common"
	"github.com/bastion-go/bastion/eval"
	"github.com/bastion-go/bastion/movegen"
	"github.com/bastion-go/bastion/zobrist"
)

// thanks Wikipedia:
/*
function negamax(node, depth, α, β, color) is
    if depth = 0 or node is a terminal node then
        return color × the heuristic value of node

    childNodes := generateMoves(node)
    childNodes := orderMoves(childNodes)
    value := −∞
    foreach child in childNodes do
        value := max(value, −negamax(child, depth − 1, −β, −α, −color))
        α := max(α, value)
        if α ≥ β then
            break (* cut-off *)
    return value
**/

const HugeNumber = 1 << 30

const (
	DefaultBaseBudget = 2 * time.Second
	DefaultMaxDepth   = MaxPly - 1
	// every root move gets this share of the budget on top of an even split
	branchSlack = 1.1
)

// Mode selects how the shared negamax routine treats its window.
type Mode int

const (
	AlphaBeta Mode = iota
	PVS
	// Minimax searches every node with a full window and no table. It is
	// the reference the pruned modes must agree with.
	Minimax
)

func (m Mode) String() string {
	switch m {
	case AlphaBeta:
		return "alphabeta"
	case PVS:
		return "pvs"
	case Minimax:
		return "minimax"
	}
	return "unknown"
}

func ModeFromString(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "alphabeta", "ab":
		return AlphaBeta, nil
	case "pvs":
		return PVS, nil
	case "minimax":
		return Minimax, nil
	}
	return AlphaBeta, fmt.Errorf("unknown search mode %q", s)
}

// Stats are the counters for one search.
type Stats struct {
	Nodes      uint64
	QNodes     uint64
	Cutoffs    uint64
	TTHits     uint64
	ReSearches uint64
	Timeouts   uint64
	Depth      int
	Elapsed    time.Duration
}

// Result is the outcome of PickMove. Score is from red's point of view.
// Move.IsNone() is true when the side to move had no legal moves.
type Result struct {
	Move   board.Move
	Score  int
	Depth  int
	Budget time.Duration
	PV     common.PVLine
	Stats  Stats
}

// Solver searches positions. A Solver runs one search at a time; its
// transposition table persists between searches until NewGame. The table
// is allocated by the first search that uses it, with DefaultSizePowerOf2
// slots unless a size was set.
type Solver struct {
	weights    eval.Weights
	zobrist    *zobrist.Zobrist
	ttable     *TranspositionTable
	mode       Mode
	baseBudget time.Duration
	maxDepth   int

	transpositionTableOptim bool
	logStream               io.Writer

	// clock is swapped in tests
	clock func() time.Time
}

func NewSolver() *Solver {
	return &Solver{
		weights:                 eval.DefaultWeights,
		zobrist:                 zobrist.Default,
		mode:                    PVS,
		baseBudget:              DefaultBaseBudget,
		maxDepth:                DefaultMaxDepth,
		transpositionTableOptim: true,
		clock:                   time.Now,
	}
}

func (s *Solver) SetMode(m Mode) {
	s.mode = m
}

func (s *Solver) Mode() Mode {
	return s.mode
}

func (s *Solver) SetWeights(w eval.Weights) {
	s.weights = w
}

func (s *Solver) Weights() eval.Weights {
	return s.weights
}

func (s *Solver) SetBaseBudget(d time.Duration) {
	s.baseBudget = d
}

// SetMaxDepth caps iterative deepening. It is clamped below MaxPly.
func (s *Solver) SetMaxDepth(d int) {
	s.maxDepth = max(1, min(d, DefaultMaxDepth))
}

func (s *Solver) SetTranspositionTableOptim(tt bool) {
	s.transpositionTableOptim = tt
}

// SetTranspositionTableSize replaces the table with one of 2^sizePowerOf2
// slots.
func (s *Solver) SetTranspositionTableSize(sizePowerOf2 int) {
	s.ttable = NewTranspositionTable(sizePowerOf2)
}

// SetTranspositionTableMemoryFraction replaces the table with the largest
// one that fits in the given fraction of system memory.
func (s *Solver) SetTranspositionTableMemoryFraction(f float64) {
	t := &TranspositionTable{}
	t.ResetWithMemoryFraction(f)
	s.ttable = t
}

// SetLogStream makes every root pass write its move values to w.
func (s *Solver) SetLogStream(w io.Writer) {
	s.logStream = w
}

// TranspositionTable returns the solver's table, allocating it if no search
// has needed it yet.
func (s *Solver) TranspositionTable() *TranspositionTable {
	if s.ttable == nil {
		s.ttable = NewTranspositionTable(DefaultSizePowerOf2)
	}
	return s.ttable
}

func (s *Solver) SetZobrist(z *zobrist.Zobrist) {
	s.zobrist = z
}

// NewGame clears everything the solver remembers between searches.
func (s *Solver) NewGame() {
	if s.ttable != nil {
		s.ttable.Clear()
	}
}

func (s *Solver) useTT() bool {
	return s.transpositionTableOptim && s.mode != Minimax
}

// searchContext is the state of one top-level search: killers, counters
// and the clock. Nothing in it outlives the search.
type searchContext struct {
	ctx     context.Context
	orderer *MoveOrderer
	stats   Stats

	timed          bool
	deadline       time.Time
	branchDeadline time.Time
	// aborted is set once the overall deadline passes or ctx is done; the
	// current pass is then thrown away.
	aborted bool
}

func (s *Solver) newContext(ctx context.Context) *searchContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.useTT() {
		s.TranspositionTable()
	}
	return &searchContext{ctx: ctx, orderer: NewMoveOrderer(s.weights)}
}

// expired reports whether the whole search must stop: ctx is done or the
// overall deadline has passed. Once true the current pass is thrown away.
func (s *Solver) expired(sc *searchContext) bool {
	if sc.aborted {
		return true
	}
	if sc.ctx.Err() != nil || (sc.timed && s.clock().After(sc.deadline)) {
		sc.aborted = true
	}
	return sc.aborted
}

// outOfTime is checked once on entry to every interior node. A node that
// is already running finishes its current child first, so a search can
// overrun its slice by about one subtree.
func (s *Solver) outOfTime(sc *searchContext) bool {
	if s.expired(sc) {
		return true
	}
	return sc.timed && s.clock().After(sc.branchDeadline)
}

// staticScore is the evaluation from the side to move's point of view.
func (s *Solver) staticScore(p board.Position) int {
	v := s.weights.Evaluate(p)
	if p.ToMove == board.Blue {
		return -v
	}
	return v
}

func redScore(p board.Position, score int) int {
	if p.ToMove == board.Blue {
		return -score
	}
	return score
}

func (s *Solver) ttHint(key uint64) board.Move {
	if !s.useTT() {
		return board.NoMove
	}
	if e, ok := s.ttable.Lookup(key); ok {
		return e.Move()
	}
	return board.NoMove
}

// SearchDepth searches p to a fixed depth with no clock. It returns the
// score from red's point of view and the best move, which is NoMove when
// depth is 0 or there are no moves.
func (s *Solver) SearchDepth(ctx context.Context, p board.Position, depth int) (int, board.Move, error) {
	sc := s.newContext(ctx)
	pv := &common.PVLine{}
	score := s.negamax(sc, p, s.zobrist.Hash(p), min(depth, DefaultMaxDepth), 0, -HugeNumber, HugeNumber, pv)
	if sc.aborted {
		return 0, board.NoMove, sc.ctx.Err()
	}
	log.Debug().Int("depth", depth).Str("mode", s.mode.String()).
		Uint64("nodes", sc.stats.Nodes).Uint64("qnodes", sc.stats.QNodes).
		Str("pv", pv.NLBString()).Msg("fixed-depth-search-done")
	return redScore(p, score), pv.GetPVMove(), nil
}

type rootPass struct {
	depth     int
	best      board.Move
	score     int
	pv        common.PVLine
	ordered   []board.Move
	evaluated int
	first     board.Move
	firstVal  int
	completed bool
}

// PickMove chooses a move for the side to move within a time budget from
// ComputeTimeBudget, deepening one ply at a time. Only passes that finish
// inside the budget count. If not even the first pass finishes, the first
// root move searched is returned.
func (s *Solver) PickMove(ctx context.Context, p board.Position) Result {
	tstart := s.clock()
	sc := s.newContext(ctx)
	moves := movegen.GenerateAll(p)
	if len(moves) == 0 {
		log.Info().Str("side", p.ToMove.String()).Msg("no-legal-moves")
		return Result{Move: board.NoMove, Score: s.weights.Evaluate(p)}
	}

	budget := ComputeTimeBudget(p, moves, s.baseBudget)
	if dl, ok := sc.ctx.Deadline(); ok && dl.Sub(tstart) < budget {
		budget = dl.Sub(tstart)
	}
	sc.timed = true
	sc.deadline = tstart.Add(budget)
	slice := time.Duration(float64(budget) * branchSlack / float64(len(moves)))

	key := s.zobrist.Hash(p)
	maximizing := p.ToMove == board.Red
	moves = sc.orderer.OrderMoves(p, moves, maximizing, 0, s.ttHint(key))

	result := Result{Move: moves[0], Budget: budget}
	haveFallback := false
	for depth := 1; depth <= s.maxDepth; depth++ {
		pass := s.searchRoot(sc, p, key, moves, depth, slice)
		if !haveFallback && pass.evaluated > 0 {
			result.Move = pass.first
			result.Score = redScore(p, pass.firstVal)
			haveFallback = true
		}
		if !pass.completed {
			log.Debug().Int("depth", depth).Int("searched", pass.evaluated).
				Int("root-moves", len(moves)).Msg("discarding-incomplete-pass")
			break
		}
		result.Move = pass.best
		result.Score = redScore(p, pass.score)
		result.Depth = depth
		result.PV = pass.pv
		moves = pass.ordered

		log.Debug().Int("depth", depth).Str("best", pass.best.String()).
			Int("score", result.Score).Uint64("nodes", sc.stats.Nodes).
			Str("pv", pass.pv.NLBString()).Msg("search-pass-done")

		if pass.score >= s.weights.WinLoss || s.clock().After(sc.deadline) {
			break
		}
	}

	sc.stats.Depth = result.Depth
	sc.stats.Elapsed = s.clock().Sub(tstart)
	result.Stats = sc.stats
	var tts TTStats
	if s.ttable != nil {
		tts = s.ttable.Stats()
	}
	log.Info().
		Str("move", result.Move.String()).
		Int("score", result.Score).
		Int("depth", result.Depth).
		Str("mode", s.mode.String()).
		Uint64("nodes", sc.stats.Nodes).
		Uint64("qnodes", sc.stats.QNodes).
		Uint64("cutoffs", sc.stats.Cutoffs).
		Uint64("re-searches", sc.stats.ReSearches).
		Uint64("ttable-hits", tts.Hits).
		Uint64("ttable-collisions", tts.Collisions).
		Dur("budget", budget).
		Float64("time-elapsed-sec", sc.stats.Elapsed.Seconds()).
		Msg("pick-move-returning")
	return result
}

// searchRoot runs one pass over the ordered root moves at a fixed depth.
func (s *Solver) searchRoot(sc *searchContext, p board.Position, key uint64, moves []board.Move,
	depth int, slice time.Duration) rootPass {

	pass := rootPass{depth: depth, score: -HugeNumber}
	α, β := -HugeNumber, HugeNumber
	scores := make(map[board.Move]int, len(moves))
	childPV := &common.PVLine{}
	if s.logStream != nil {
		fmt.Fprintf(s.logStream, "- depth: %d\n  plays:\n", depth)
	}

	for i, m := range moves {
		if s.expired(sc) {
			return pass
		}
		sc.branchDeadline = s.clock().Add(slice)
		child := p.ApplyMove(m)
		childKey := s.zobrist.AddMove(key, p, child, m)
		childPV.Clear()
		score := s.searchChild(sc, child, childKey, depth-1, 1, α, β, i == 0, childPV)
		if i == 0 {
			pass.first, pass.firstVal = m, score
		}
		pass.evaluated++
		if sc.aborted {
			return pass
		}
		scores[m] = score
		if s.logStream != nil {
			fmt.Fprintf(s.logStream, "  - play: %v\n    value: %v\n", m, redScore(p, score))
		}
		if score > pass.score {
			pass.score = score
			pass.best = m
			pass.pv.Update(m, *childPV, score)
		}
		if s.mode != Minimax && score > α {
			α = score
		}
	}

	pass.ordered = append([]board.Move(nil), moves...)
	sort.SliceStable(pass.ordered, func(i, j int) bool {
		return scores[pass.ordered[i]] > scores[pass.ordered[j]]
	})
	pass.pv = pass.pv.Copy()
	pass.completed = true
	return pass
}
