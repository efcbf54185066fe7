package shell

import (
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/movegen"
)

// ShellCompleter completes command names, their options and legal moves.
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"gen": {
		Options: []string{"-noisy"},
	},
	"best": {
		Options: []string{"-depth", "-mode"},
	},
	"autoplay": {
		Options: []string{"-games", "-threads", "-depth", "-player1", "-player2", "-seeds"},
	},
	"tune": {
		Options: []string{"-population", "-generations", "-games", "-depth"},
	},
	"tt": {
		Args: []string{"clear"},
	},
	"help": {
		Args: []string{"best", "autoplay", "autoanalyze", "tune", "set", "notation"},
	},
}

var commandNames = []string{
	"new", "load", "fen", "show", "gen", "eval", "best", "play", "undo",
	"autoplay", "autoanalyze", "tune", "set", "tt", "help", "exit",
}

var (
	boolValues   = []string{"true", "false"}
	modeValues   = []string{"alphabeta", "pvs", "minimax"}
	playerValues = []string{"search", "greedy", "random"}
)

func init() {
	meta := commandMetadata["set"]
	meta.Args = lo.Keys(settable)
	sort.Strings(meta.Args)
	commandMetadata["set"] = meta
}

// Do implements the readline.AutoComplete interface
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		// unbalanced quotes while typing
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}

		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		if strings.HasPrefix(lastCompleteField, "-") {
			switch strings.TrimPrefix(lastCompleteField, "-") {
			case "noisy":
				completions = boolValues
			case "mode":
				completions = modeValues
			case "player1", "player2":
				completions = playerValues
			}
		} else if cmdName == "play" {
			completions = c.legalMoves()
		} else if cmdName == "set" && len(fields) >= 2 && fields[1] == "mode" {
			completions = modeValues
		}

		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			// Return only the part that needs to be added
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}

func (c *ShellCompleter) legalMoves() []string {
	return lo.Map(movegen.GenerateAll(c.sc.position()), func(m board.Move, _ int) string {
		return m.String()
	})
}
