package tuner

import (
	"encoding/base64"
	"fmt"

	"lukechampine.com/frand"

	"github.com/bastion-go/bastion/config"
)

// ParamsFromConfig reads the tuner-* keys on top of DefaultParams.
func ParamsFromConfig(cfg *config.Config) (Params, error) {
	p := DefaultParams()
	p.Population = cfg.GetInt(config.ConfigTunerPopulation)
	p.Generations = cfg.GetInt(config.ConfigTunerGenerations)
	p.Games = cfg.GetInt(config.ConfigTunerGames)
	p.Depth = cfg.GetInt(config.ConfigTunerDepth)
	p.MoveLimit = cfg.GetInt(config.ConfigMoveLimit)
	p.Threads = cfg.GetInt(config.ConfigThreads)
	if plies := cfg.GetInt(config.ConfigOpeningPlies); plies > 0 {
		p.OpeningPlies = plies
	}
	seed, err := ParseSeed(cfg.GetString(config.ConfigTunerSeed))
	if err != nil {
		return p, err
	}
	p.Seed = seed
	if p.Population < 2 || p.Generations < 1 || p.Games < 1 {
		return p, fmt.Errorf("tuner needs a population of at least 2, 1 generation and 1 game, got %d/%d/%d",
			p.Population, p.Generations, p.Games)
	}
	return p, nil
}

// ParseSeed decodes a 32-byte url-safe base64 seed. An empty string gives a
// fresh random seed.
func ParseSeed(s string) ([32]byte, error) {
	var seed [32]byte
	if s == "" {
		return frand.Entropy256(), nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return seed, fmt.Errorf("bad tuner seed: %w", err)
	}
	if len(decoded) != len(seed) {
		return seed, fmt.Errorf("bad tuner seed: %d bytes, want %d", len(decoded), len(seed))
	}
	copy(seed[:], decoded)
	return seed, nil
}

func FormatSeed(seed [32]byte) string {
	return base64.RawURLEncoding.EncodeToString(seed[:])
}
