package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command is one line typed at the prompt
type Command struct {
	Name string
	Args []string
}

var ErrUnknownCommand = errors.New("unknown command")

// aliases maps shortcuts to command names
var aliases = map[string]string{
	"a":      "add",
	"rm":     "remove",
	"new":    "start",
	"c":      "check",
	"sel":    "select",
	"u":      "undo",
	"s":      "save",
	"ls":     "games",
	"list":   "games",
	"l":      "load",
	"del":    "delete",
	"t":      "table",
	"h":      "help",
	"?":      "help",
	"q":      "quit",
	"exit":   "quit",
	"finish": "end",
}

var commands = map[string]bool{
	"add": true, "remove": true, "start": true, "select": true, "check": true,
	"undo": true, "save": true, "games": true, "load": true, "delete": true,
	"end": true, "table": true, "cards": true, "help": true, "quit": true,
}

// ParseCommand splits input into a command name and arguments. Names are
// case-insensitive; arguments keep their case so player names survive.
func ParseCommand(input string) (Command, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{}, nil
	}
	name := strings.ToLower(fields[0])
	if full, ok := aliases[name]; ok {
		name = full
	}
	if !commands[name] {
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	return Command{Name: name, Args: fields[1:]}, nil
}

// ParseCheck reads the arguments of a check command. Sums are given either
// as name=sum pairs or positionally in the order of active players:
//
//	check Ann Ann=3 Ben=12 Cat=40
//	check Ann 3 12 40
//	check 3 12 40            (uses the selected checker)
func ParseCheck(args []string, active []string) (string, map[string]int, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("usage: check [checker] name=sum ... | sum ...")
	}

	checker := ""
	if _, err := strconv.Atoi(args[0]); err != nil && !strings.Contains(args[0], "=") {
		checker = args[0]
		args = args[1:]
	}

	sums := make(map[string]int, len(args))
	seen := make(map[string]bool, len(args))
	positional := 0
	for _, arg := range args {
		name, value, named := strings.Cut(arg, "=")
		if !named {
			value = arg
			if positional >= len(active) {
				return "", nil, fmt.Errorf("too many sums: %d players are still in", len(active))
			}
			name = active[positional]
			positional++
		}
		if name == "" {
			return "", nil, fmt.Errorf("missing player name in %q", arg)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", nil, fmt.Errorf("sum for %s is not a number: %q", name, value)
		}
		// names match players ignoring case
		key := strings.ToLower(name)
		if seen[key] {
			return "", nil, fmt.Errorf("sum for %s given twice", name)
		}
		seen[key] = true
		sums[name] = n
	}
	if positional > 0 && positional != len(args) {
		return "", nil, fmt.Errorf("use either name=sum pairs or plain sums, not both")
	}
	return checker, sums, nil
}

const helpText = `Setup:    add <name>, remove <name>, start
Play:     select <name>, check [checker] name=sum... | sum..., undo, table, cards [rank...]
Games:    save, games, load <#|id>, delete <#|id>, end
Other:    help, quit`
