package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/bastion-go/bastion/automatic"
	"github.com/bastion-go/bastion/config"
	"github.com/bastion-go/bastion/eval"
	"github.com/bastion-go/bastion/search"
)

const guardHangs = "3RG3/7/7/7/7/3r13/3BG3 r"

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func newTestController(t *testing.T) (*ShellController, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigTTSizePower, 12)
	cfg.Set(config.ConfigMoveLimit, 20)
	cfg.Set(config.ConfigThreads, 2)
	cfg.Set(config.ConfigTunerOutput, filepath.Join(t.TempDir(), "weights.yaml"))
	sc, err := NewShellController(cfg, t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	sc.SetOutput(out)
	return sc, out
}

func run(t *testing.T, sc *ShellController, line string) (string, error) {
	t.Helper()
	sig := make(chan os.Signal, 1)
	resp, err := sc.standardModeSwitch(line, sig)
	if err != nil {
		return "", err
	}
	return resp.message, nil
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"autoplay -games 20",
			&shellcmd{"autoplay", nil, CmdOptions{"games": {"20"}}},
			nil},
		{"tt clear",
			&shellcmd{"tt", []string{"clear"}, CmdOptions{}},
			nil},
		{`load "3RG3/7/7/7/7/3r13/3BG3 r" -x 1 -x 2`,
			&shellcmd{"load",
				[]string{guardHangs},
				CmdOptions{"x": {"1", "2"}}},
			nil,
		},
		{"best -depth", nil, errWrongOptionSyntax},
	}
	for _, tc := range cases {
		cmd, err := extractFields(tc.line)
		is.Equal(cmd, tc.expCmd)
		is.Equal(err, tc.expErr)
	}
}

func TestCmdOptions(t *testing.T) {
	is := is.New(t)
	c := CmdOptions{"depth": {"3"}, "noisy": {"TRUE"}, "bad": {"x"}}
	n, err := c.Int("depth")
	is.NoErr(err)
	is.Equal(n, 3)
	n, err = c.IntDefault("games", 7)
	is.NoErr(err)
	is.Equal(n, 7)
	_, err = c.Int("games")
	is.True(err != nil)
	_, err = c.IntDefault("bad", 1)
	is.True(err != nil)
	is.True(c.Bool("noisy"))
	is.True(!c.Bool("quiet"))
	is.Equal(c.String("depth"), "3")
	is.Equal(c.String("none"), "")
}

func TestLoadGenPlayUndo(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)

	_, err := run(t, sc, "load "+guardHangs)
	is.NoErr(err)
	out, err := run(t, sc, "fen")
	is.NoErr(err)
	is.Equal(out, guardHangs)

	out, err = run(t, sc, "gen -noisy true")
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "1 moves for red"))
	is.True(strings.Contains(out, "D2-D1-1"))

	_, err = run(t, sc, "play 1")
	is.NoErr(err)
	out, err = run(t, sc, "show")
	is.NoErr(err)
	is.True(strings.Contains(out, "red has won"))

	_, err = run(t, sc, "play D1-D2-1")
	is.True(err != nil) // game over

	_, err = run(t, sc, "undo")
	is.NoErr(err)
	out, _ = run(t, sc, "fen")
	is.Equal(out, guardHangs)
	_, err = run(t, sc, "undo")
	is.True(err != nil) // nothing left

	_, err = run(t, sc, "play D2-D4-2")
	is.True(err != nil) // not legal here
	_, err = run(t, sc, "play 5")
	is.True(err != nil) // no gen since the last move
}

func TestLoadRejectsBadNotation(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)
	_, err := run(t, sc, "load 8/7 r")
	is.True(err != nil)
	_, err = run(t, sc, "load")
	is.True(err != nil)
	out, _ := run(t, sc, "fen")
	is.Equal(out, "r1r11RG1r1r1/2r11r12/3r13/7/3b13/2b11b12/b1b11BG1b1b1 r")
}

func TestBest(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)
	_, err := run(t, sc, "load "+guardHangs)
	is.NoErr(err)

	for _, mode := range []string{"alphabeta", "pvs", "minimax"} {
		out, err := run(t, sc, "best -depth 1 -mode "+mode)
		is.NoErr(err)
		is.True(strings.HasPrefix(out, "best: D2-D1-1 "))
		is.True(strings.HasSuffix(out, "mode: "+mode))
	}
	// -mode only lasts for one search
	is.Equal(sc.solver.Mode(), search.PVS)

	_, err = run(t, sc, "set budget 50ms")
	is.NoErr(err)
	out, err := run(t, sc, "best")
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "best: D2-D1-1 "))

	_, err = run(t, sc, "best -mode sideways")
	is.True(err != nil)
}

func TestEval(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)
	out, err := run(t, sc, "eval")
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "score (red's view): 0\n"))
	is.True(strings.Contains(out, "red:  {Material:"))
	is.True(strings.Contains(out, "blue: {Material:"))
}

func TestSet(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)

	_, err := run(t, sc, "set mode minimax")
	is.NoErr(err)
	is.Equal(sc.solver.Mode(), search.Minimax)
	out, err := run(t, sc, "set mode")
	is.NoErr(err)
	is.Equal(out, "mode minimax")

	_, err = run(t, sc, "set move-limit 40")
	is.NoErr(err)
	is.Equal(sc.config.GetInt(config.ConfigMoveLimit), 40)

	_, err = run(t, sc, "set depth 0")
	is.True(err != nil)
	_, err = run(t, sc, "set budget soon")
	is.True(err != nil)
	_, err = run(t, sc, "set colour blue")
	is.True(err != nil)

	path := filepath.Join(t.TempDir(), "w.yaml")
	w := eval.DefaultWeights
	w.Mobility = 1
	is.NoErr(eval.SaveWeights(path, w))
	_, err = run(t, sc, "set weights "+path)
	is.NoErr(err)
	is.Equal(sc.solver.Weights(), w)

	out, err = run(t, sc, "set")
	is.NoErr(err)
	is.True(strings.Contains(out, "move-limit     40"))
}

func TestTranspositionTableCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)
	out, err := run(t, sc, "tt")
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "capacity: 4096 used: 0 "))

	_, err = run(t, sc, "best -depth 2")
	is.NoErr(err)
	_, err = run(t, sc, "tt clear")
	is.NoErr(err)
	is.Equal(sc.solver.TranspositionTable().Size(), 0)
	_, err = run(t, sc, "tt flush")
	is.True(err != nil)
}

func TestAutoplay(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)
	out, err := run(t, sc, "autoplay -games 2 -threads 2 -player1 greedy -player2 random")
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "Games played: 2\ngreedy1 vs random2: "))

	out, err = run(t, sc, "autoplay -games 1 -depth 1")
	is.NoErr(err)
	is.True(strings.Contains(out, "search1 vs greedy2: "))

	_, err = run(t, sc, "autoplay -player1 oracle")
	is.True(err != nil)
	_, err = run(t, sc, "autoplay -games 0")
	is.True(err != nil)
}

func TestAutoplaySeeds(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)
	path := filepath.Join(t.TempDir(), "seeds.txt")

	out, err := run(t, sc, "autoplay -games 3 -player1 greedy -player2 random -seeds "+path)
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "Games played: 3\n"))
	seeds, err := automatic.LoadSeeds(path)
	is.NoErr(err)
	is.Equal(len(seeds), 3)

	// the seed file decides the number of games
	out, err = run(t, sc, "autoplay -games 5 -player1 greedy -player2 random -seeds "+path)
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "Games played: 3\n"))
	again, err := automatic.LoadSeeds(path)
	is.NoErr(err)
	is.Equal(again, seeds)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	is.NoErr(os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = run(t, sc, "autoplay -player1 greedy -seeds "+empty)
	is.True(err != nil)
}

func TestAutoanalyze(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)
	_, err := run(t, sc, "autoanalyze")
	is.True(err != nil) // no games-log yet

	dir := t.TempDir()
	gamesLog := filepath.Join(dir, "games.csv")
	movesLog := filepath.Join(dir, "moves.csv")
	_, err = run(t, sc, "set games-log "+gamesLog)
	is.NoErr(err)
	_, err = run(t, sc, "set moves-log "+movesLog)
	is.NoErr(err)
	_, err = run(t, sc, "autoplay -games 2 -player1 greedy -player2 random")
	is.NoErr(err)

	out, err := run(t, sc, "autoanalyze")
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "Games played: 2\n"))
	is.True(strings.Contains(out, "greedy1 wins: "))
	byPath, err := run(t, sc, "autoanalyze "+gamesLog)
	is.NoErr(err)
	is.Equal(byPath, out)

	moves, err := os.ReadFile(movesLog)
	is.NoErr(err)
	is.True(strings.HasPrefix(string(moves), "gameID,ply,player,side,move\n"))
	is.True(strings.Contains(string(moves), ",greedy1,"))

	_, err = run(t, sc, "autoanalyze "+filepath.Join(dir, "missing.csv"))
	is.True(err != nil)
}

func TestTune(t *testing.T) {
	is := is.New(t)
	sc, out := newTestController(t)
	resp, err := run(t, sc, "tune -population 2 -generations 1 -games 1 -depth 0")
	is.NoErr(err)
	is.True(strings.HasPrefix(resp, "best fitness "))
	is.True(strings.Contains(out.String(), "generation 1: "))

	saved, err := eval.LoadWeights(sc.config.GetString(config.ConfigTunerOutput))
	is.NoErr(err)
	is.Equal(saved, sc.solver.Weights())
}

func TestHelpAndExit(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)
	out, err := run(t, sc, "help")
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "Usage:"))
	out, err = run(t, sc, "help best")
	is.NoErr(err)
	is.True(strings.HasPrefix(out, "best [-depth N]"))
	_, err = run(t, sc, "help castling")
	is.True(err != nil)

	_, err = run(t, sc, "fly")
	is.True(err != nil)

	sig := make(chan os.Signal, 1)
	_, err = sc.standardModeSwitch("exit", sig)
	is.Equal(err, errQuit)
	is.Equal(<-sig, syscall.SIGINT)
}

func TestExecutePrintsErrors(t *testing.T) {
	is := is.New(t)
	sc, out := newTestController(t)
	sig := make(chan os.Signal, 1)
	sc.Execute(sig, "fen")
	sc.Execute(sig, "play Z9-Z8-1")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	is.Equal(len(lines), 2)
	is.True(strings.HasPrefix(lines[1], "Error: "))
}

func complete(sc *ShellController, text string) []string {
	matches, _ := NewShellCompleter(sc).Do([]rune(text), len(text))
	var s []string
	for _, m := range matches {
		s = append(s, text+string(m))
	}
	return s
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t)
	is.Equal(complete(sc, "autop"), []string{"autoplay"})
	is.Equal(complete(sc, "autoa"), []string{"autoanalyze"})
	is.Equal(complete(sc, "best -m"), []string{"best -mode"})
	is.Equal(complete(sc, "best -mode p"), []string{"best -mode pvs"})
	is.Equal(complete(sc, "tt "), []string{"tt clear"})
	is.Equal(complete(sc, "set mode m"), []string{"set mode minimax"})

	_, err := run(t, sc, "load "+guardHangs)
	is.NoErr(err)
	is.Equal(complete(sc, "play D2-D1"), []string{"play D2-D1-1"})
}
