// Package eval scores Guard & Towers positions. Scores are from red's point
// of view: positive is good for red.
package eval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bastion-go/bastion/board"
)

// An Evaluator scores a position from red's point of view.
type Evaluator interface {
	Evaluate(board.Position) int
}

// Weights are the multipliers for each feature. WinLoss must dominate the
// sum of every other term.
type Weights struct {
	WinLoss          int `yaml:"win_loss"`
	Material         int `yaml:"material"`
	TowerExtra       int `yaml:"tower_extra"`
	Center           int `yaml:"center"`
	AlignedWithGuard int `yaml:"aligned_with_guard"`
	GuardProgress    int `yaml:"guard_progress"`
	Mobility         int `yaml:"mobility"`
	BlockedTower     int `yaml:"blocked_tower"`
	GuardSafety      int `yaml:"guard_safety"`
	GuardThreat      int `yaml:"guard_threat"`
}

var DefaultWeights = Weights{
	WinLoss:          45252,
	Material:         477,
	TowerExtra:       27,
	Center:           3,
	AlignedWithGuard: 26,
	GuardProgress:    92,
	Mobility:         13,
	BlockedTower:     -21,
	GuardSafety:      15,
	GuardThreat:      -21,
}

// WeightNames lists the weights in Vector order.
var WeightNames = []string{
	"win_loss", "material", "tower_extra", "center", "aligned_with_guard",
	"guard_progress", "mobility", "blocked_tower", "guard_safety", "guard_threat",
}

// Evaluate scores p with DefaultWeights.
func Evaluate(p board.Position) int {
	return DefaultWeights.Evaluate(p)
}

func (w Weights) Evaluate(p board.Position) int {
	return w.EvaluateSide(p, board.Red) - w.EvaluateSide(p, board.Blue)
}

// EvaluateSide scores p for one side. A win or loss short-circuits to
// ±WinLoss.
func (w Weights) EvaluateSide(p board.Position, side board.Side) int {
	if p.HasWon(side) {
		return w.WinLoss
	}
	if p.HasWon(side.Other()) {
		return -w.WinLoss
	}
	return w.Score(ExtractFeatures(p, side))
}

// Score is the weighted sum of a feature set.
func (w Weights) Score(f Features) int {
	return f.Material*w.Material +
		f.ExtraLevels*w.TowerExtra +
		f.Center*w.Center +
		f.Aligned*w.AlignedWithGuard +
		(MaxDistance-f.GuardDistance)*w.GuardProgress +
		f.Mobility*w.Mobility +
		f.Blocked*w.BlockedTower +
		f.Friends*w.GuardSafety +
		f.Enemies*w.GuardThreat
}

func (w Weights) Vector() []int {
	return []int{w.WinLoss, w.Material, w.TowerExtra, w.Center, w.AlignedWithGuard,
		w.GuardProgress, w.Mobility, w.BlockedTower, w.GuardSafety, w.GuardThreat}
}

func WeightsFromVector(v []int) (Weights, error) {
	if len(v) != len(WeightNames) {
		return Weights{}, fmt.Errorf("expected %d weights, got %d", len(WeightNames), len(v))
	}
	return Weights{
		WinLoss: v[0], Material: v[1], TowerExtra: v[2], Center: v[3],
		AlignedWithGuard: v[4], GuardProgress: v[5], Mobility: v[6],
		BlockedTower: v[7], GuardSafety: v[8], GuardThreat: v[9],
	}, nil
}

func (w Weights) String() string {
	s := ""
	for i, v := range w.Vector() {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%d", WeightNames[i], v)
	}
	return s
}

// LoadWeights reads a yaml weights file. Missing keys keep their default.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights
	bts, err := os.ReadFile(path)
	if err != nil {
		return w, err
	}
	if err := yaml.Unmarshal(bts, &w); err != nil {
		return w, fmt.Errorf("parsing %s: %w", path, err)
	}
	return w, nil
}

func SaveWeights(path string, w Weights) error {
	bts, err := yaml.Marshal(w)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bts, 0o644)
}
