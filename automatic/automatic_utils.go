package automatic

// Matches between two players, played in parallel.

import (
	"bufio"
	"context"
	"encoding/csv"
	"expvar"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/config"
	"github.com/bastion-go/bastion/movegen"
	"github.com/bastion-go/bastion/stats"
)

var (
	GamesPlayed *expvar.Int
)

func init() {
	GamesPlayed = expvar.NewInt("gamesPlayed")
}

// PlayerFactory builds a fresh pair of players for one worker. The first
// player takes red in even-numbered games and blue in odd ones.
type PlayerFactory func() (first, second Player, err error)

// MatchResult tallies a match from the first player's point of view.
type MatchResult struct {
	Players [2]string
	Games   int
	Wins    int
	Draws   int
	Losses  int
	// Score gets 1 per win, 0.5 per draw and 0 per loss.
	Score   stats.Statistic
	Plies   stats.Statistic
	Reasons map[EndReason]int
	Records []*GameRecord
}

func (m *MatchResult) String() string {
	var sb strings.Builder
	lo, hi := m.Score.ConfidenceInterval(95)
	fmt.Fprintf(&sb, "Games played: %d\n", m.Games)
	fmt.Fprintf(&sb, "%s vs %s: %d wins, %d draws, %d losses\n",
		m.Players[0], m.Players[1], m.Wins, m.Draws, m.Losses)
	fmt.Fprintf(&sb, "%s score: %.3f (95%% CI %.3f to %.3f)\n", m.Players[0], m.Score.Mean(), lo, hi)
	fmt.Fprintf(&sb, "Mean plies: %.1f  Stdev: %.1f\n", m.Plies.Mean(), m.Plies.Stdev())
	for r := ReasonWin; r <= ReasonRepetition; r++ {
		fmt.Fprintf(&sb, "Ended by %s: %d\n", r, m.Reasons[r])
	}
	return sb.String()
}

// RandomOpening plays up to plies random moves from the start position,
// stopping early if the game ends.
func RandomOpening(seed [32]byte, plies int) board.Position {
	p := board.StartPosition()
	if plies <= 0 {
		return p
	}
	rng := frand.NewCustom(seed[:], 32, 12)
	for i := 0; i < plies && !p.GameOver(); i++ {
		moves := movegen.GenerateAll(p)
		if len(moves) == 0 {
			break
		}
		p = p.ApplyMove(moves[rng.Intn(len(moves))])
	}
	return p
}

// PlayMatch plays numGames games with fresh opening seeds.
func PlayMatch(ctx context.Context, cfg *config.Config, newPlayers PlayerFactory,
	numGames, threads int) (*MatchResult, error) {

	seeds, err := GenerateSeeds(numGames)
	if err != nil {
		return nil, err
	}
	return PlayMatchWithSeeds(ctx, cfg, newPlayers, seeds, threads)
}

// PlayMatchWithSeeds plays one game per seed on up to threads workers. Game
// i opens with RandomOpening(seeds[i], opening-plies).
func PlayMatchWithSeeds(ctx context.Context, cfg *config.Config, newPlayers PlayerFactory,
	seeds [][32]byte, threads int) (*MatchResult, error) {

	threads = max(1, min(threads, len(seeds)))
	moveLimit := cfg.GetInt(config.ConfigMoveLimit)
	openingPlies := cfg.GetInt(config.ConfigOpeningPlies)
	log.Debug().Int("games", len(seeds)).Int("threads", threads).Msg("starting-match")

	var logchan chan string
	var logDone chan error
	if path := cfg.GetString(config.ConfigMovesLog); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		logchan = make(chan string, 64)
		logDone = make(chan error, 1)
		go func() { logDone <- writeMovesLog(f, logchan) }()
	}

	records := make([]*GameRecord, len(seeds))
	// each worker tallies its own games; the parts are merged at the end
	parts := make([]*MatchResult, threads)
	names := make(chan [2]string, threads)
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range seeds {
			select {
			case jobs <- i:
			case <-gctx.Done():
				log.Info().Msg("match-stopping-early")
				return gctx.Err()
			}
		}
		return nil
	})

	for t := 0; t < threads; t++ {
		part := newMatchResult()
		parts[t] = part
		g.Go(func() error {
			first, second, err := newPlayers()
			if err != nil {
				return err
			}
			names <- [2]string{first.Name(), second.Name()}
			for i := range jobs {
				red, blue := first, second
				if i%2 == 1 {
					red, blue = second, first
				}
				r := NewGameRunner(red, blue, moveLimit)
				if logchan != nil {
					r.SetLogChannel(logchan)
				}
				// each index is written by exactly one worker
				records[i], err = r.Play(gctx, i, RandomOpening(seeds[i], openingPlies))
				if err != nil {
					return err
				}
				part.add(records[i], i%2 == 0)
				GamesPlayed.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	if logchan != nil {
		close(logchan)
		if werr := <-logDone; werr != nil && err == nil {
			err = werr
		}
	}
	res := newMatchResult()
	for _, part := range parts {
		res.merge(part)
	}
	for _, rec := range records {
		if rec != nil {
			res.Records = append(res.Records, rec)
		}
	}
	select {
	case res.Players = <-names:
	default:
	}
	if path := cfg.GetString(config.ConfigGamesLog); path != "" {
		if werr := WriteGamesLog(path, res.Records); werr != nil && err == nil {
			err = werr
		}
	}
	log.Info().Int("games", res.Games).Int("wins", res.Wins).Int("draws", res.Draws).
		Int("losses", res.Losses).Float64("score", res.Score.Mean()).Msg("match-done")
	return res, err
}

func newMatchResult() *MatchResult {
	return &MatchResult{Reasons: map[EndReason]int{}}
}

// add counts one game. Records are not kept; the caller orders them.
func (m *MatchResult) add(rec *GameRecord, firstIsRed bool) {
	m.Games++
	m.Reasons[rec.Reason]++
	m.Plies.Push(float64(rec.Plies()))
	switch {
	case rec.Outcome == Draw:
		m.Draws++
		m.Score.Push(0.5)
	case (rec.Outcome == RedWins) == firstIsRed:
		m.Wins++
		m.Score.Push(1)
	default:
		m.Losses++
		m.Score.Push(0)
	}
}

func (m *MatchResult) merge(o *MatchResult) {
	m.Games += o.Games
	m.Wins += o.Wins
	m.Draws += o.Draws
	m.Losses += o.Losses
	m.Score.Merge(o.Score)
	m.Plies.Merge(o.Plies)
	for r, n := range o.Reasons {
		m.Reasons[r] += n
	}
}

const movesLogHeader = "gameID,ply,player,side,move\n"

// writeMovesLog copies the runners' move lines to w until ch is closed. It
// keeps draining ch after a write error so that no runner blocks.
func writeMovesLog(w io.Writer, ch <-chan string) error {
	bw := bufio.NewWriter(w)
	_, err := bw.WriteString(movesLogHeader)
	for line := range ch {
		if err == nil {
			_, err = bw.WriteString(line)
		}
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

var gamesLogHeader = []string{"gameID", "red", "blue", "winner", "reason", "plies", "final"}

// WriteGamesLog writes one CSV line per game.
func WriteGamesLog(path string, records []*GameRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(gamesLogHeader); err != nil {
		return err
	}
	for _, rec := range records {
		final := ""
		if len(rec.FENs) > 0 {
			final = rec.FENs[len(rec.FENs)-1]
		}
		err := w.Write([]string{
			strconv.Itoa(rec.ID), rec.Players[0], rec.Players[1],
			rec.Outcome.String(), rec.Reason.String(), strconv.Itoa(rec.Plies()), final,
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
