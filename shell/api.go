package shell

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/bastion-go/bastion/automatic"
	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/config"
	"github.com/bastion-go/bastion/eval"
	"github.com/bastion-go/bastion/fen"
	"github.com/bastion-go/bastion/movegen"
	"github.com/bastion-go/bastion/search"
	"github.com/bastion-go/bastion/tuner"
)

const defaultAutoplayGames = 10

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func (c CmdOptions) StringArray(key string) []string {
	return c[key]
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	sc.history = []board.Position{board.StartPosition()}
	sc.curPlays = nil
	sc.solver.NewGame()
	return msg(sc.position().ToDisplayText()), nil
}

func (sc *ShellController) load(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: load <fen>")
	}
	p, err := fen.Parse(strings.Join(cmd.args, " "))
	if err != nil {
		return nil, err
	}
	sc.history = []board.Position{p}
	sc.curPlays = nil
	sc.solver.NewGame()
	return msg(p.ToDisplayText()), nil
}

func (sc *ShellController) fen(cmd *shellcmd) (*Response, error) {
	return msg(fen.String(sc.position())), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	p := sc.position()
	s := p.ToDisplayText() + fen.String(p)
	switch {
	case p.HasWon(board.Red):
		s += "\nred has won"
	case p.HasWon(board.Blue):
		s += "\nblue has won"
	}
	return msg(s), nil
}

func (sc *ShellController) generate(cmd *shellcmd) (*Response, error) {
	p := sc.position()
	var moves []board.Move
	if cmd.options.Bool("noisy") {
		moves = movegen.GenerateNoisy(p)
	} else {
		moves = movegen.GenerateAll(p)
	}
	sc.curPlays = moves
	if len(moves) == 0 {
		return msg(p.ToMove.String() + " has no moves"), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d moves for %s\n", len(moves), p.ToMove)
	for i, m := range moves {
		note := ""
		if movegen.IsCapture(p, m) {
			note = " x"
		}
		fmt.Fprintf(&sb, "%3d: %-10s%s\n", i+1, m, note)
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

func (sc *ShellController) eval(cmd *shellcmd) (*Response, error) {
	p := sc.position()
	var sb strings.Builder
	fmt.Fprintf(&sb, "score (red's view): %d\n", sc.weights.Evaluate(p))
	for _, side := range []board.Side{board.Red, board.Blue} {
		fmt.Fprintf(&sb, "%-5s %+v\n", side.String()+":", eval.ExtractFeatures(p, side))
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

func (sc *ShellController) best(cmd *shellcmd) (*Response, error) {
	p := sc.position()
	depth, err := cmd.options.IntDefault("depth", 0)
	if err != nil {
		return nil, err
	}
	if m := cmd.options.String("mode"); m != "" {
		mode, err := search.ModeFromString(m)
		if err != nil {
			return nil, err
		}
		prev := sc.solver.Mode()
		sc.solver.SetMode(mode)
		defer sc.solver.SetMode(prev)
	}

	if depth > 0 {
		score, m, err := sc.solver.SearchDepth(context.Background(), p, depth)
		if err != nil {
			return nil, err
		}
		if m.IsNone() {
			return msg(fmt.Sprintf("no moves; static score %d", score)), nil
		}
		return msg(fmt.Sprintf("best: %s score: %d depth: %d mode: %s",
			m, score, depth, sc.solver.Mode())), nil
	}

	res := sc.solver.PickMove(context.Background(), p)
	if res.Move.IsNone() {
		return msg(fmt.Sprintf("no moves; static score %d", res.Score)), nil
	}
	return msg(fmt.Sprintf("best: %s score: %d depth: %d mode: %s\nnodes: %d qnodes: %d time: %v of %v\n%s",
		res.Move, res.Score, res.Depth, sc.solver.Mode(),
		res.Stats.Nodes, res.Stats.QNodes,
		res.Stats.Elapsed.Round(time.Millisecond), res.Budget.Round(time.Millisecond),
		strings.TrimRight(res.PV.String(), "\n"))), nil
}

// play accepts a move in notation or the number of a move from the last gen.
func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: play <move>")
	}
	p := sc.position()
	if p.GameOver() {
		return nil, errors.New("the game is over")
	}
	var m board.Move
	if idx, err := strconv.Atoi(cmd.args[0]); err == nil {
		if idx < 1 || idx > len(sc.curPlays) {
			return nil, fmt.Errorf("no move number %d; run gen first", idx)
		}
		m = sc.curPlays[idx-1]
	} else {
		m, err = board.ParseMove(cmd.args[0])
		if err != nil {
			return nil, err
		}
	}
	if err := movegen.CheckLegal(p, m); err != nil {
		return nil, err
	}
	next := p.ApplyMove(m)
	sc.history = append(sc.history, next)
	sc.curPlays = nil
	return msg(next.ToDisplayText()), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if len(sc.history) == 1 {
		return nil, errors.New("nothing to undo")
	}
	sc.history = sc.history[:len(sc.history)-1]
	sc.curPlays = nil
	return msg(sc.position().ToDisplayText()), nil
}

func (sc *ShellController) playerFactory(kind string, depth int) (func(name string) (automatic.Player, error), error) {
	switch kind {
	case "search":
		return func(name string) (automatic.Player, error) {
			s, err := sc.newSolver()
			if err != nil {
				return nil, err
			}
			return automatic.NewSearchPlayer(name, s, depth), nil
		}, nil
	case "greedy":
		return func(name string) (automatic.Player, error) {
			return automatic.NewGreedyPlayer(name, sc.weights), nil
		}, nil
	case "random":
		return func(name string) (automatic.Player, error) {
			return automatic.NewRandomPlayer(name, frand.Entropy256()), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown player %q; use search, greedy or random", kind)
}

func (sc *ShellController) autoplay(cmd *shellcmd) (*Response, error) {
	games, err := cmd.options.IntDefault("games", defaultAutoplayGames)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.GetInt(config.ConfigThreads))
	if err != nil {
		return nil, err
	}
	depth, err := cmd.options.IntDefault("depth", 2)
	if err != nil {
		return nil, err
	}
	if games < 1 || threads < 1 {
		return nil, errors.New("games and threads must be positive")
	}
	kinds := []string{"search", "greedy"}
	for i, key := range []string{"player1", "player2"} {
		if k := cmd.options.String(key); k != "" {
			kinds[i] = k
		}
	}
	first, err := sc.playerFactory(kinds[0], depth)
	if err != nil {
		return nil, err
	}
	second, err := sc.playerFactory(kinds[1], depth)
	if err != nil {
		return nil, err
	}
	names := [2]string{kinds[0] + "1", kinds[1] + "2"}
	factory := func() (automatic.Player, automatic.Player, error) {
		a, err := first(names[0])
		if err != nil {
			return nil, nil, err
		}
		b, err := second(names[1])
		return a, b, err
	}
	seeds, err := matchSeeds(cmd.options.String("seeds"), games)
	if err != nil {
		return nil, err
	}
	log.Info().Int("games", len(seeds)).Int("threads", threads).
		Strs("players", names[:]).Msg("autoplay-starting")
	res, err := automatic.PlayMatchWithSeeds(context.Background(), sc.config, factory, seeds, threads)
	if err != nil {
		return nil, err
	}
	return msg(strings.TrimRight(res.String(), "\n")), nil
}

// matchSeeds gives the opening seeds of a match. An existing seed file is
// replayed and decides the number of games; otherwise fresh seeds are made
// and, if path is set, saved there.
func matchSeeds(path string, games int) ([][32]byte, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			seeds, err := automatic.LoadSeeds(path)
			if err != nil {
				return nil, err
			}
			if len(seeds) == 0 {
				return nil, fmt.Errorf("no seeds in %s", path)
			}
			log.Info().Str("path", path).Int("seeds", len(seeds)).Msg("loaded-seeds")
			return seeds, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	seeds, err := automatic.GenerateSeeds(games)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := automatic.SaveSeeds(seeds, path); err != nil {
			return nil, err
		}
		log.Info().Str("path", path).Int("seeds", len(seeds)).Msg("saved-seeds")
	}
	return seeds, nil
}

func (sc *ShellController) autoanalyze(cmd *shellcmd) (*Response, error) {
	path := sc.config.GetString(config.ConfigGamesLog)
	if len(cmd.args) > 0 {
		path = cmd.args[0]
	}
	if path == "" {
		return nil, errors.New("usage: autoanalyze <games-log>")
	}
	summary, err := automatic.AnalyzeLogFile(path)
	if err != nil {
		return nil, err
	}
	return msg(strings.TrimRight(summary, "\n")), nil
}

func (sc *ShellController) tune(cmd *shellcmd) (*Response, error) {
	params, err := tuner.ParamsFromConfig(sc.config)
	if err != nil {
		return nil, err
	}
	for key, field := range map[string]*int{
		"population":  &params.Population,
		"generations": &params.Generations,
		"games":       &params.Games,
		"depth":       &params.Depth,
	} {
		if *field, err = cmd.options.IntDefault(key, *field); err != nil {
			return nil, err
		}
	}
	log.Info().Str("seed", tuner.FormatSeed(params.Seed)).Msg("tuner-starting")
	t := tuner.New(params)
	t.SetReport(sc.out)
	best, err := t.Run(context.Background())
	if err != nil {
		return nil, err
	}
	sc.weights = best.Weights
	sc.solver.SetWeights(best.Weights)
	out := sc.config.GetString(config.ConfigTunerOutput)
	if out != "" {
		if err := eval.SaveWeights(out, best.Weights); err != nil {
			return nil, err
		}
	}
	return msg(fmt.Sprintf("best fitness %.0f: %s\nnow using these weights; saved to %q",
		best.Fitness, best.Weights, out)), nil
}

// settable are the options `set` understands, mapped to their config keys.
var settable = map[string]string{
	"mode":          config.ConfigSearchMode,
	"budget":        config.ConfigBaseBudget,
	"depth":         config.ConfigMaxDepth,
	"weights":       config.ConfigWeightsFile,
	"move-limit":    config.ConfigMoveLimit,
	"threads":       config.ConfigThreads,
	"opening-plies": config.ConfigOpeningPlies,
	"games-log":     config.ConfigGamesLog,
	"moves-log":     config.ConfigMovesLog,
}

func (sc *ShellController) optionsText() string {
	keys := lo.Keys(settable)
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%-14s %v\n", k, sc.config.Get(settable[k]))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(sc.optionsText()), nil
	}
	opt := cmd.args[0]
	key, ok := settable[opt]
	if !ok {
		return nil, fmt.Errorf("cannot set %q; try one of %s", opt,
			strings.Join(lo.Keys(settable), ", "))
	}
	if len(cmd.args) == 1 {
		return msg(fmt.Sprintf("%s %v", opt, sc.config.Get(key))), nil
	}
	value := cmd.args[1]
	switch opt {
	case "mode":
		mode, err := search.ModeFromString(value)
		if err != nil {
			return nil, err
		}
		sc.solver.SetMode(mode)
		sc.config.Set(key, mode.String())
	case "budget":
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, errors.New("budget must be positive")
		}
		sc.solver.SetBaseBudget(d)
		sc.config.Set(key, d)
	case "weights":
		w, err := eval.LoadWeights(value)
		if err != nil {
			return nil, err
		}
		sc.weights = w
		sc.solver.SetWeights(w)
		sc.config.Set(key, value)
	case "games-log", "moves-log":
		sc.config.Set(key, value)
	default:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		if n < 0 || (n == 0 && opt != "opening-plies") {
			return nil, fmt.Errorf("%s must be positive", opt)
		}
		if opt == "depth" {
			sc.solver.SetMaxDepth(n)
		}
		sc.config.Set(key, n)
	}
	return msg("set " + opt + " to " + value), nil
}

func (sc *ShellController) tt(cmd *shellcmd) (*Response, error) {
	ttable := sc.solver.TranspositionTable()
	if len(cmd.args) > 0 {
		if cmd.args[0] != "clear" {
			return nil, errors.New("usage: tt [clear]")
		}
		ttable.Clear()
		return msg("transposition table cleared"), nil
	}
	st := ttable.Stats()
	return msg(fmt.Sprintf("capacity: %d used: %d lookups: %d hits: %d collisions: %d created: %d",
		ttable.Capacity(), ttable.Size(), st.Lookups, st.Hits, st.Collisions, st.Created)), nil
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return usage("standard")
	}
	return usageTopic(cmd.args[0])
}
