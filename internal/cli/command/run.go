package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/cli/repl"
	"github.com/yndnr/respkv/internal/protocol/resp"
)

func run(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := connection.NewManager(flags.Options)
	defer mgr.Disconnect()

	if c.Args().Present() {
		return runOnce(ctx, mgr, flags.Output, c.Args().Slice(), c.App.Writer)
	}
	return runInteractive(ctx, mgr, flags, c.App.Reader, c.App.Writer)
}

// runOnce executes one command. An error reply exits with status 1.
func runOnce(ctx context.Context, mgr *connection.Manager, format output.Format, args []string, w io.Writer) error {
	v, err := mgr.Do(ctx, args...)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Could not connect to %s: %v", mgr.Addr(), err), 1)
	}
	if err := output.ForCommand(format, args).Format(w, v); err != nil {
		return err
	}
	if v.IsError() {
		return cli.Exit("", 1)
	}
	return nil
}

func runInteractive(ctx context.Context, mgr *connection.Manager, flags *GlobalFlags, in io.Reader, w io.Writer) error {
	if err := mgr.Connect(ctx); err != nil {
		fmt.Fprintf(w, "Could not connect to %s: %v\n", mgr.Addr(), err)
	}

	history := repl.NewHistory("")
	if flags.History {
		history = repl.NewHistory(repl.DefaultHistoryFile())
	}

	r := repl.New(&executor{mgr: mgr}, flags.Output,
		repl.WithIO(in, w),
		repl.WithHistory(history),
		repl.WithCompleter(repl.NewCompleter(serverCommands(ctx, mgr)...)),
	)
	return r.Run(ctx)
}

// serverCommands asks the server for its command names.
func serverCommands(ctx context.Context, mgr *connection.Manager) []string {
	if !mgr.IsConnected() {
		return nil
	}
	v, err := mgr.Do(ctx, "COMMAND", "LIST")
	if err != nil || v.Kind != resp.KindArray {
		return nil
	}
	names := make([]string, 0, len(v.Array))
	for _, item := range v.Array {
		if item.Kind == resp.KindBulkString {
			names = append(names, string(item.Bulk))
		}
	}
	return names
}

// executor adapts the connection manager to the REPL.
type executor struct {
	mgr *connection.Manager
}

func (e *executor) Execute(ctx context.Context, args []string) (resp.Value, error) {
	return e.mgr.Do(ctx, args...)
}

// Prompt renders host:port, the database when not 0, or "not connected".
func (e *executor) Prompt() string {
	if !e.mgr.IsConnected() {
		return "not connected> "
	}
	var b strings.Builder
	b.WriteString(e.mgr.Addr())
	if db := e.mgr.DB(); db != 0 {
		b.WriteString("[" + strconv.Itoa(db) + "]")
	}
	b.WriteString("> ")
	return b.String()
}
