package redisserver

import (
	"sort"
	"strings"

	"github.com/yndnr/respkv/internal/protocol/resp"
)

// DBSIZE
func cmdDBSize(ctx *Context, _ [][]byte) resp.Value {
	n, err := ctx.DB.Len()
	if err != nil {
		return ctx.storageError(err)
	}
	return resp.Integer(int64(n))
}

// FLUSHDB [ASYNC | SYNC]
func cmdFlushDB(ctx *Context, args [][]byte) resp.Value {
	if !validFlushMode(args) {
		return resp.Error(errSyntax)
	}
	if err := ctx.DB.Flush(); err != nil {
		return ctx.storageError(err)
	}
	return resp.OK()
}

// FLUSHALL [ASYNC | SYNC]
func cmdFlushAll(ctx *Context, args [][]byte) resp.Value {
	if !validFlushMode(args) {
		return resp.Error(errSyntax)
	}

	engine := ctx.srv.engine
	for i := 0; i < engine.Databases(); i++ {
		ks, err := engine.Select(i)
		if err != nil {
			return ctx.storageError(err)
		}
		if err := ks.Flush(); err != nil {
			return ctx.storageError(err)
		}
	}
	return resp.OK()
}

// validFlushMode accepts the ASYNC and SYNC modifiers. Both flush
// synchronously.
func validFlushMode(args [][]byte) bool {
	if len(args) == 1 {
		return true
	}
	mode := strings.ToUpper(string(args[1]))
	return mode == "ASYNC" || mode == "SYNC"
}

// keyspaceLookup records a GET hit or miss.
func (s *Server) keyspaceLookup(hit bool) {
	if hit {
		s.stats.keyspaceHits.Add(1)
	} else {
		s.stats.keyspaceMisses.Add(1)
	}
	s.metrics.KeyspaceLookup(hit)
}

// COMMAND [COUNT | DOCS [name ...] | INFO [name ...] | LIST]
func cmdCommand(ctx *Context, args [][]byte) resp.Value {
	srv := ctx.srv
	if len(args) == 1 {
		return resp.Array(srv.commandDocs(srv.sortedCommands())...)
	}

	sub := strings.ToLower(string(args[1]))
	switch sub {
	case "count":
		if len(args) != 2 {
			return resp.Errorf("ERR wrong number of arguments for 'command|count' command")
		}
		return resp.Integer(int64(len(srv.commands)))

	case "list":
		if len(args) != 2 {
			return resp.Errorf("ERR wrong number of arguments for 'command|list' command")
		}
		cmds := srv.sortedCommands()
		names := make([]resp.Value, len(cmds))
		for i, c := range cmds {
			names[i] = resp.BulkString(c.Name)
		}
		return resp.Array(names...)

	case "info":
		if len(args) == 2 {
			return resp.Array(srv.commandDocs(srv.sortedCommands())...)
		}
		out := make([]resp.Value, 0, len(args)-2)
		for _, name := range args[2:] {
			cmd, ok := srv.lookupCommand(name)
			if !ok {
				out = append(out, resp.NullArray())
				continue
			}
			out = append(out, commandDoc(cmd))
		}
		return resp.Array(out...)

	case "docs":
		// Clients use DOCS for help text only; none is provided.
		return resp.Array()

	default:
		return resp.Errorf("ERR unknown subcommand '%s'. Try COMMAND HELP.", args[1])
	}
}

func (s *Server) sortedCommands() []*Command {
	cmds := make([]*Command, 0, len(s.commands))
	for _, c := range s.commands {
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

func (s *Server) commandDocs(cmds []*Command) []resp.Value {
	out := make([]resp.Value, len(cmds))
	for i, c := range cmds {
		out[i] = commandDoc(c)
	}
	return out
}

// commandDoc renders the COMMAND INFO entry: name, arity, flags, first
// key, last key and key step.
func commandDoc(c *Command) resp.Value {
	names := c.Flags.Names()
	flags := make([]resp.Value, len(names))
	for i, n := range names {
		flags[i] = resp.SimpleString(n)
	}
	return resp.Array(
		resp.BulkString(c.Name),
		resp.Integer(int64(c.Arity())),
		resp.Array(flags...),
		resp.Integer(int64(c.FirstKey)),
		resp.Integer(int64(c.LastKey)),
		resp.Integer(int64(c.KeyStep)),
	)
}
