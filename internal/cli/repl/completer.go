package repl

import (
	"sort"
	"strings"
)

// builtins are handled by the REPL itself.
var builtins = []string{"clear", "exit", "help", "quit"}

// defaultCommands is used when the server's command list is unavailable.
var defaultCommands = []string{
	"auth", "client", "command", "dbsize", "del", "echo", "exists",
	"expire", "flushall", "flushdb", "get", "info", "keys", "persist",
	"pexpire", "ping", "pttl", "select", "set", "ttl",
}

// Completer provides command completion for the REPL.
type Completer struct {
	commands []string
}

// NewCompleter creates a completer for the given server command names.
// With no names it falls back to the built-in list.
func NewCompleter(commands ...string) *Completer {
	if len(commands) == 0 {
		commands = defaultCommands
	}

	seen := make(map[string]bool)
	var all []string
	for _, name := range append(append([]string{}, commands...), builtins...) {
		name = strings.ToLower(name)
		if !seen[name] {
			seen[name] = true
			all = append(all, name)
		}
	}
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the command names starting with prefix, ignoring case.
// Suggestions follow the case of the first letter of prefix.
func (c *Completer) Complete(prefix string) []string {
	lower := strings.ToLower(prefix)
	upper := prefix != "" && prefix[0] >= 'A' && prefix[0] <= 'Z'

	var suggestions []string
	for _, cmd := range c.commands {
		if !strings.HasPrefix(cmd, lower) {
			continue
		}
		if upper {
			cmd = strings.ToUpper(cmd)
		}
		suggestions = append(suggestions, cmd)
	}
	return suggestions
}

// Commands returns every known name in order.
func (c *Completer) Commands() []string {
	return c.commands
}
