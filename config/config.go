// Package config loads settings from flags, BASTION_* environment
// variables and an optional yaml file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug            = "debug"
	ConfigSearchMode       = "search-mode"
	ConfigBaseBudget       = "base-budget"
	ConfigMaxDepth         = "max-depth"
	ConfigTTSizePower      = "tt-size-power"
	ConfigTTMemoryFraction = "tt-memory-fraction"
	ConfigMoveLimit        = "move-limit"
	ConfigWeightsFile      = "weights-file"
	ConfigThreads          = "threads"
	ConfigCPUProfile       = "cpu-profile"
	ConfigConfigFile       = "config-file"
	ConfigOpeningPlies     = "opening-plies"
	ConfigGamesLog         = "games-log"
	ConfigMovesLog         = "moves-log"

	ConfigTunerPopulation  = "tuner-population"
	ConfigTunerGenerations = "tuner-generations"
	ConfigTunerGames       = "tuner-games"
	ConfigTunerSeed        = "tuner-seed"
	ConfigTunerDepth       = "tuner-depth"
	ConfigTunerOutput      = "tuner-output"
)

const envPrefix = "BASTION"

type Config struct {
	*viper.Viper
	args []string
}

// DefaultConfig has every default set and nothing else loaded.
func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigSearchMode, "pvs")
	c.SetDefault(ConfigBaseBudget, 2*time.Second)
	c.SetDefault(ConfigMaxDepth, 64)
	c.SetDefault(ConfigTTSizePower, 22)
	c.SetDefault(ConfigTTMemoryFraction, 0.0)
	c.SetDefault(ConfigMoveLimit, 150)
	c.SetDefault(ConfigWeightsFile, "")
	c.SetDefault(ConfigThreads, runtime.NumCPU())
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigConfigFile, "")
	c.SetDefault(ConfigOpeningPlies, 0)
	c.SetDefault(ConfigGamesLog, "")
	c.SetDefault(ConfigMovesLog, "")

	c.SetDefault(ConfigTunerPopulation, 40)
	c.SetDefault(ConfigTunerGenerations, 30)
	c.SetDefault(ConfigTunerGames, 10)
	c.SetDefault(ConfigTunerSeed, "")
	c.SetDefault(ConfigTunerDepth, 0)
	c.SetDefault(ConfigTunerOutput, "weights.yaml")
}

// Load parses args (without the program name) on top of the environment and
// the optional config file.
func (c *Config) Load(args []string) error {
	if c.Viper == nil {
		c.Viper = viper.New()
	}
	c.setDefaults()

	fs := pflag.NewFlagSet("bastion", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigSearchMode, "pvs", "search mode: alphabeta, pvs or minimax")
	fs.Duration(ConfigBaseBudget, 2*time.Second, "base thinking time per move before scaling")
	fs.Int(ConfigMaxDepth, 64, "maximum iterative deepening depth")
	fs.Int(ConfigTTSizePower, 22, "transposition table holds 2^N entries")
	fs.Float64(ConfigTTMemoryFraction, 0, "size the transposition table to this fraction of system memory (0 to use the power)")
	fs.Int(ConfigMoveLimit, 150, "plies before a self-play game is adjudicated")
	fs.String(ConfigWeightsFile, "", "yaml file with evaluation weights")
	fs.Int(ConfigThreads, runtime.NumCPU(), "number of games to play in parallel")
	fs.String(ConfigCPUProfile, "", "write a cpu profile to this file")
	fs.String(ConfigConfigFile, "", "yaml config file")
	fs.Int(ConfigOpeningPlies, 0, "random plies played before each self-play game")
	fs.String(ConfigGamesLog, "", "csv file that receives one line per self-play game")
	fs.String(ConfigMovesLog, "", "csv file that receives one line per self-play move")
	fs.Int(ConfigTunerPopulation, 40, "tuner population size")
	fs.Int(ConfigTunerGenerations, 30, "tuner generations")
	fs.Int(ConfigTunerGames, 10, "game pairs per fitness evaluation")
	fs.String(ConfigTunerSeed, "", "tuner seed (empty for a random one)")
	fs.Int(ConfigTunerDepth, 0, "search depth of tuner candidates; 0 plays greedily")
	fs.String(ConfigTunerOutput, "weights.yaml", "where the tuner writes the best weights")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.args = fs.Args()

	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if cfgFile := c.GetString(ConfigConfigFile); cfgFile != "" {
		c.SetConfigFile(cfgFile)
		c.SetConfigType("yaml")
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", cfgFile, err)
		}
	}
	return c.validate()
}

// Args are the positional arguments left over after Load parsed the flags.
func (c *Config) Args() []string {
	return c.args
}

var errBadValue = errors.New("bad config value")

func (c *Config) validate() error {
	if c.GetInt(ConfigThreads) < 1 {
		return fmt.Errorf("%w: %s must be at least 1", errBadValue, ConfigThreads)
	}
	if c.GetInt(ConfigMaxDepth) < 1 {
		return fmt.Errorf("%w: %s must be at least 1", errBadValue, ConfigMaxDepth)
	}
	if f := c.GetFloat64(ConfigTTMemoryFraction); f < 0 || f > 0.9 {
		return fmt.Errorf("%w: %s must be between 0 and 0.9", errBadValue, ConfigTTMemoryFraction)
	}
	if c.GetInt(ConfigOpeningPlies) < 0 {
		return fmt.Errorf("%w: %s must not be negative", errBadValue, ConfigOpeningPlies)
	}
	if c.GetDuration(ConfigBaseBudget) <= 0 {
		return fmt.Errorf("%w: %s must be positive", errBadValue, ConfigBaseBudget)
	}
	return nil
}
