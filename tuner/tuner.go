// Package tuner searches for evaluation weights with a genetic algorithm.
// Candidates play game pairs against a fixed reference player and breed by
// tournament selection, single-point crossover and Gaussian mutation.
package tuner

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
	"lukechampine.com/frand"

	"github.com/bastion-go/bastion/automatic"
	"github.com/bastion-go/bastion/eval"
	"github.com/bastion-go/bastion/search"
	"github.com/bastion-go/bastion/stats"
)

var (
	MinWeights = eval.Weights{
		WinLoss: 10000, Material: 10, TowerExtra: 3, Center: 3, AlignedWithGuard: 3,
		GuardProgress: 5, Mobility: 1, BlockedTower: -40, GuardSafety: 1, GuardThreat: -100,
	}
	MaxWeights = eval.Weights{
		WinLoss: 200000, Material: 500, TowerExtra: 90, Center: 85, AlignedWithGuard: 80,
		GuardProgress: 100, Mobility: 20, BlockedTower: -2, GuardSafety: 50, GuardThreat: -2,
	}
	// ReferenceWeights drive the fixed opponent and seed the first population.
	ReferenceWeights = eval.Weights{
		WinLoss: 100000, Material: 100, TowerExtra: 15, Center: 12, AlignedWithGuard: 10,
		GuardProgress: 20, Mobility: 2, BlockedTower: -10, GuardSafety: 5, GuardThreat: -30,
	}
)

const (
	pointsPerWin  = 3
	pointsPerDraw = 1

	histogramBins = 10
)

type Params struct {
	Population     int
	Generations    int
	TournamentSize int
	MutationRate   float64
	CrossoverRate  float64
	Elitism        int
	// Games is the number of game pairs per fitness evaluation; the
	// candidate plays both colours in each pair.
	Games        int
	MoveLimit    int
	OpeningPlies int
	// Depth is the fixed search depth of candidates. Zero makes them play
	// greedily like the reference.
	Depth   int
	Threads int
	Seed    [32]byte
}

func DefaultParams() Params {
	return Params{
		Population:     40,
		Generations:    30,
		TournamentSize: 4,
		MutationRate:   0.2,
		CrossoverRate:  0.7,
		Elitism:        2,
		Games:          10,
		MoveLimit:      150,
		OpeningPlies:   2,
		Depth:          0,
		Threads:        1,
	}
}

type Individual struct {
	Weights eval.Weights
	Fitness float64
}

// frandSource lets gonum draw from a seeded frand generator.
type frandSource struct {
	rng *frand.RNG
}

func (s frandSource) Uint64() uint64 {
	return s.rng.Uint64n(math.MaxUint64)
}

// Tuner is not safe for concurrent use. Its random state lives on the
// calling goroutine; only fitness evaluation fans out.
type Tuner struct {
	params    Params
	rng       *frand.RNG
	normal    distuv.Normal
	reference eval.Weights
	report    io.Writer
}

func New(params Params) *Tuner {
	rng := frand.NewCustom(params.Seed[:], 1024, 12)
	return &Tuner{
		params:    params,
		rng:       rng,
		normal:    distuv.Normal{Mu: 0, Sigma: 1, Src: frandSource{rng}},
		reference: ReferenceWeights,
	}
}

// SetReport makes Run print a fitness histogram for every generation to w.
func (t *Tuner) SetReport(w io.Writer) {
	t.report = w
}

func (t *Tuner) randomWeights() eval.Weights {
	lower, upper := MinWeights.Vector(), MaxWeights.Vector()
	v := make([]int, len(lower))
	for i := range v {
		v[i] = lower[i] + t.rng.Intn(upper[i]-lower[i]+1)
	}
	w, _ := eval.WeightsFromVector(v)
	return w
}

// InitialPopulation holds the reference weights plus random individuals.
func (t *Tuner) InitialPopulation() []Individual {
	pop := make([]Individual, t.params.Population)
	for i := range pop {
		if i == 0 {
			pop[i].Weights = t.reference
			continue
		}
		pop[i].Weights = t.randomWeights()
	}
	return pop
}

// Select runs a tournament with replacement and returns the fittest entrant.
func (t *Tuner) Select(pop []Individual) Individual {
	best := pop[t.rng.Intn(len(pop))]
	for i := 1; i < t.params.TournamentSize; i++ {
		c := pop[t.rng.Intn(len(pop))]
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

// Crossover swaps the tails of two weight vectors after a random cut point.
func (t *Tuner) Crossover(a, b eval.Weights) (eval.Weights, eval.Weights) {
	if t.rng.Float64() >= t.params.CrossoverRate {
		return a, b
	}
	va, vb := a.Vector(), b.Vector()
	cut := 1 + t.rng.Intn(len(va)-1)
	for i := cut; i < len(va); i++ {
		va[i], vb[i] = vb[i], va[i]
	}
	ca, _ := eval.WeightsFromVector(va)
	cb, _ := eval.WeightsFromVector(vb)
	return ca, cb
}

// Mutate perturbs each weight with probability MutationRate by Gaussian
// noise of 5% of its size, at least 1, and clamps it to its range.
func (t *Tuner) Mutate(w eval.Weights) eval.Weights {
	v := w.Vector()
	lower, upper := MinWeights.Vector(), MaxWeights.Vector()
	for i := range v {
		if t.rng.Float64() >= t.params.MutationRate {
			continue
		}
		sigma := math.Max(1, 0.05*math.Abs(float64(v[i])))
		v[i] += int(math.Round(t.normal.Rand() * sigma))
		v[i] = max(lower[i], min(upper[i], v[i]))
	}
	mutated, _ := eval.WeightsFromVector(v)
	return mutated
}

func (t *Tuner) newCandidate(w eval.Weights) automatic.Player {
	if t.params.Depth <= 0 {
		return automatic.NewGreedyPlayer("candidate", w)
	}
	solver := search.NewSolver()
	solver.SetWeights(w)
	solver.SetTranspositionTableSize(16)
	return automatic.NewSearchPlayer("candidate", solver, t.params.Depth)
}

// Fitness plays len(seeds) game pairs of w against the reference player and
// scores 3 per win and 1 per draw. Games that hit the move limit are decided
// by w's own evaluation.
func (t *Tuner) Fitness(ctx context.Context, w eval.Weights, seeds [][32]byte) (float64, error) {
	candidate := t.newCandidate(w)
	reference := automatic.NewGreedyPlayer("reference", t.reference)
	points := 0
	for i, seed := range seeds {
		start := automatic.RandomOpening(seed, t.params.OpeningPlies)
		for _, candidateIsRed := range []bool{true, false} {
			red, blue := automatic.Player(candidate), automatic.Player(reference)
			if !candidateIsRed {
				red, blue = blue, red
			}
			r := automatic.NewGameRunner(red, blue, t.params.MoveLimit)
			r.SetAdjudicator(w)
			rec, err := r.Play(ctx, i, start)
			if err != nil {
				return 0, err
			}
			switch rec.Outcome {
			case automatic.Draw:
				points += pointsPerDraw
			case automatic.RedWins:
				if candidateIsRed {
					points += pointsPerWin
				}
			case automatic.BlueWins:
				if !candidateIsRed {
					points += pointsPerWin
				}
			}
		}
	}
	return float64(points), nil
}

// Evaluate fills in the fitness of every individual, up to Threads at once.
func (t *Tuner) Evaluate(ctx context.Context, pop []Individual) error {
	seeds := make([][32]byte, t.params.Games)
	for i := range seeds {
		t.rng.Read(seeds[i][:])
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, t.params.Threads))
	for i := range pop {
		g.Go(func() error {
			f, err := t.Fitness(gctx, pop[i].Weights, seeds)
			if err != nil {
				return err
			}
			pop[i].Fitness = f
			return nil
		})
	}
	return g.Wait()
}

// Run evolves the population and returns the best individual seen.
func (t *Tuner) Run(ctx context.Context) (Individual, error) {
	if t.params.Population < 2 {
		return Individual{}, fmt.Errorf("population of %d is too small", t.params.Population)
	}
	pop := t.InitialPopulation()
	var best Individual
	bestFitness := math.Inf(-1)

	for gen := 0; gen < t.params.Generations; gen++ {
		if err := t.Evaluate(ctx, pop); err != nil {
			return best, err
		}
		sort.SliceStable(pop, func(i, j int) bool { return pop[i].Fitness > pop[j].Fitness })
		if pop[0].Fitness > bestFitness {
			best, bestFitness = pop[0], pop[0].Fitness
		}

		summary := &stats.Statistic{}
		fitnesses := lo.Map(pop, func(ind Individual, _ int) float64 { return ind.Fitness })
		for _, f := range fitnesses {
			summary.Push(f)
		}
		log.Info().Int("generation", gen+1).
			Float64("best-fitness", pop[0].Fitness).
			Float64("mean-fitness", summary.Mean()).
			Float64("stdev-fitness", summary.Stdev()).
			Str("best-weights", pop[0].Weights.String()).
			Msg("generation-done")
		if t.report != nil {
			fmt.Fprintf(t.report, "generation %d: %s\n", gen+1, summary.String())
			if err := stats.FprintHistogram(t.report, fitnesses, histogramBins); err != nil {
				return best, err
			}
		}

		if gen == t.params.Generations-1 {
			break
		}
		pop = t.nextGeneration(pop)
	}
	return best, nil
}

// nextGeneration expects pop sorted by fitness, best first.
func (t *Tuner) nextGeneration(pop []Individual) []Individual {
	next := make([]Individual, 0, len(pop))
	for _, elite := range pop[:min(t.params.Elitism, len(pop))] {
		next = append(next, Individual{Weights: elite.Weights})
	}
	for len(next) < len(pop) {
		a, b := t.Crossover(t.Select(pop).Weights, t.Select(pop).Weights)
		next = append(next, Individual{Weights: t.Mutate(a)})
		if len(next) < len(pop) {
			next = append(next, Individual{Weights: t.Mutate(b)})
		}
	}
	return next
}
