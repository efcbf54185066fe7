// Package shell is the interactive front end: a readline loop over a small
// command language for loading positions, searching them and running
// self-play matches and tuning.
package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/config"
	"github.com/bastion-go/bastion/eval"
	"github.com/bastion-go/bastion/search"
)

const historyFile = "/tmp/bastion-readline.tmp"

var (
	errNoData            = errors.New("no data in line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errQuit              = errors.New("sending quit signal")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

type ShellController struct {
	l      *readline.Instance
	out    io.Writer
	config *config.Config

	execPath   string
	gitVersion string

	solver  *search.Solver
	weights eval.Weights
	// history holds every position of the current game; the last one is
	// on the board.
	history  []board.Position
	curPlays []board.Move
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController builds a controller from cfg. Weights come from the
// weights-file if one is set.
func NewShellController(cfg *config.Config, execPath, gitVersion string) (*ShellController, error) {
	sc := &ShellController{
		out:        os.Stdout,
		config:     cfg,
		execPath:   execPath,
		gitVersion: gitVersion,
		weights:    eval.DefaultWeights,
	}
	if path := cfg.GetString(config.ConfigWeightsFile); path != "" {
		w, err := eval.LoadWeights(path)
		if err != nil {
			return nil, err
		}
		sc.weights = w
	}
	solver, err := sc.newSolver()
	if err != nil {
		return nil, err
	}
	sc.solver = solver
	sc.history = []board.Position{board.StartPosition()}
	return sc, nil
}

// newSolver applies the search settings of the config to a fresh solver.
func (sc *ShellController) newSolver() (*search.Solver, error) {
	mode, err := search.ModeFromString(sc.config.GetString(config.ConfigSearchMode))
	if err != nil {
		return nil, err
	}
	s := search.NewSolver()
	s.SetMode(mode)
	s.SetWeights(sc.weights)
	s.SetBaseBudget(sc.config.GetDuration(config.ConfigBaseBudget))
	s.SetMaxDepth(sc.config.GetInt(config.ConfigMaxDepth))
	if f := sc.config.GetFloat64(config.ConfigTTMemoryFraction); f > 0 {
		s.SetTranspositionTableMemoryFraction(f)
	} else {
		s.SetTranspositionTableSize(sc.config.GetInt(config.ConfigTTSizePower))
	}
	return s, nil
}

func (sc *ShellController) position() board.Position {
	return sc.history[len(sc.history)-1]
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// SetOutput redirects command output.
func (sc *ShellController) SetOutput(w io.Writer) {
	sc.out = w
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	// handle options
	for idx := 1; idx < len(fields); idx++ {
		if strings.HasPrefix(fields[idx], "-") {
			if idx == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := fields[idx][1:]
			options[key] = append(options[key], fields[idx+1])
			idx++
			continue
		}
		args = append(args, fields[idx])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func (sc *ShellController) standardModeSwitch(line string, sig chan os.Signal) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "bye":
		sig <- syscall.SIGINT
		return nil, errQuit
	case "help":
		return sc.help(cmd)
	case "new":
		return sc.newGame(cmd)
	case "load":
		return sc.load(cmd)
	case "fen":
		return sc.fen(cmd)
	case "show":
		return sc.show(cmd)
	case "gen":
		return sc.generate(cmd)
	case "eval":
		return sc.eval(cmd)
	case "best":
		return sc.best(cmd)
	case "play":
		return sc.play(cmd)
	case "undo":
		return sc.undo(cmd)
	case "autoplay":
		return sc.autoplay(cmd)
	case "autoanalyze":
		return sc.autoanalyze(cmd)
	case "tune":
		return sc.tune(cmd)
	case "set":
		return sc.set(cmd)
	case "tt":
		return sc.tt(cmd)
	default:
		log.Debug().Msgf("you said: %q", line)
		return nil, fmt.Errorf("command %q not recognized; try `help`", cmd.cmd)
	}
}

// Execute runs a single command line, as given on the command line of the
// binary.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	resp, err := sc.standardModeSwitch(line, sig)
	if err != nil {
		if !errors.Is(err, errQuit) {
			sc.showError(err)
		}
		return
	}
	if resp != nil {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mbastion>\033[0m ",
		HistoryFile:     historyFile,
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		log.Error().Err(err).Msg("could not start readline")
		sig <- syscall.SIGINT
		return
	}
	sc.l = l
	sc.out = l.Stderr()
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		resp, err := sc.standardModeSwitch(line, sig)
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			sc.showError(err)
			continue
		}
		if resp != nil {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// Cleanup releases whatever the last command left behind.
func (sc *ShellController) Cleanup() {
	log.Debug().Uint64("tt-created", sc.solver.TranspositionTable().Stats().Created).
		Msg("shell-cleanup")
	sc.solver.NewGame()
}
