package redisserver

import (
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/yndnr/respkv/internal/protocol/resp"
	"github.com/yndnr/respkv/internal/storage"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

// Error replies shared by several commands.
const (
	errInternal     = "ERR internal storage error"
	errSyntax       = "ERR syntax error"
	errNotInteger   = "ERR value is not an integer or out of range"
	errNoAuth       = "NOAUTH Authentication required."
	errRateLimited  = "ERR rate limit exceeded"
	errDBOutOfRange = "ERR DB index is out of range"
)

// Flag describes properties of a command.
type Flag uint16

const (
	// FlagWrite marks commands that modify the keyspace.
	FlagWrite Flag = 1 << iota
	// FlagReadOnly marks commands that only read the keyspace.
	FlagReadOnly
	// FlagAdmin marks server administration commands.
	FlagAdmin
	// FlagFast marks O(1) or O(log N) commands.
	FlagFast
	// FlagNoAuth marks commands allowed before AUTH succeeds.
	FlagNoAuth
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagWrite, "write"},
	{FlagReadOnly, "readonly"},
	{FlagAdmin, "admin"},
	{FlagFast, "fast"},
	{FlagNoAuth, "no_auth"},
}

// Names returns the COMMAND reply names of the set flags.
func (f Flag) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

// HandlerFunc executes one command. args[0] is the command name as sent.
// Handlers report every failure as an error reply.
type HandlerFunc func(ctx *Context, args [][]byte) resp.Value

// Command is one entry of the command table.
type Command struct {
	// Name is the lower-case command name.
	Name string
	// MinArgs and MaxArgs bound the argument count including the name.
	// MaxArgs is -1 for variadic commands.
	MinArgs int
	MaxArgs int
	Flags   Flag
	Handler HandlerFunc

	// FirstKey, LastKey and KeyStep locate key arguments for COMMAND.
	FirstKey int
	LastKey  int
	KeyStep  int

	stats commandStats
}

// Arity returns the arity in the COMMAND convention: positive for a fixed
// count, negative for a minimum.
func (c *Command) Arity() int {
	if c.MaxArgs == c.MinArgs {
		return c.MinArgs
	}
	return -c.MinArgs
}

func (c *Command) acceptsArgs(n int) bool {
	if n < c.MinArgs {
		return false
	}
	return c.MaxArgs < 0 || n <= c.MaxArgs
}

// Context is passed to command handlers.
type Context struct {
	srv    *Server
	client *client
	cmd    *Command

	// DB is the keyspace selected by the connection.
	DB storage.Keyspace
}

// Now returns the server clock.
func (ctx *Context) Now() time.Time {
	return ctx.srv.now()
}

// Logger returns a logger carrying the client id.
func (ctx *Context) Logger() logger.Logger {
	return ctx.srv.logger.With("client_id", ctx.client.id, "command", ctx.cmd.Name)
}

// storageError logs err and converts it into the generic storage error
// reply. The connection is closed after the reply when the engine has
// been closed.
func (ctx *Context) storageError(err error) resp.Value {
	if errors.Is(err, storage.ErrClosed) {
		ctx.client.closeAfterReply = true
	}
	ctx.Logger().Error("storage operation failed", "error", err)
	return resp.Error(errInternal)
}

// dispatch routes one frame to its handler and returns the reply.
func (s *Server) dispatch(c *client, f resp.Frame) resp.Value {
	name := f.Name()
	cmd, ok := s.commands[name]
	if !ok {
		s.stats.errorReplies.Add(1)
		s.metrics.ObserveCommand("unknown", metric.ResultError, 0)
		return resp.Errorf("ERR unknown command '%s'", f.Args[0])
	}
	c.touch(name)

	if reply, ok := s.admit(c, cmd, len(f.Args)); !ok {
		cmd.stats.rejectedCalls.Add(1)
		s.stats.errorReplies.Add(1)
		s.metrics.ObserveCommand(cmd.Name, metric.ResultError, 0)
		return reply
	}

	ctx := &Context{srv: s, client: c, cmd: cmd, DB: c.db}

	start := time.Now()
	reply := s.call(ctx, f.Args)
	elapsed := time.Since(start)

	failed := reply.IsError()
	cmd.stats.observe(elapsed, failed)
	s.stats.commandsProcessed.Add(1)
	result := metric.ResultOK
	if failed {
		s.stats.errorReplies.Add(1)
		result = metric.ResultError
	}
	s.metrics.ObserveCommand(cmd.Name, result, elapsed)

	return reply
}

// admit applies the checks that run before a handler.
func (s *Server) admit(c *client, cmd *Command, argc int) (resp.Value, bool) {
	if !cmd.acceptsArgs(argc) {
		return resp.Errorf("ERR wrong number of arguments for '%s' command", cmd.Name), false
	}
	if !c.authenticated && cmd.Flags&FlagNoAuth == 0 {
		return resp.Error(errNoAuth), false
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return resp.Error(errRateLimited), false
	}
	return resp.Value{}, true
}

func (s *Server) call(ctx *Context, args [][]byte) (reply resp.Value) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Logger().Error("command panicked",
				"panic", r,
				"args", logger.RedactCommand(args),
				"stack", string(debug.Stack()),
			)
			reply = resp.Error(errInternal)
		}
	}()
	return ctx.cmd.Handler(ctx, args)
}

// lookupCommand finds a command by name, ignoring case.
func (s *Server) lookupCommand(name []byte) (*Command, bool) {
	cmd, ok := s.commands[strings.ToLower(string(name))]
	return cmd, ok
}
