package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/protocol/resp"
)

// Executor runs commands for the REPL.
type Executor interface {
	// Execute sends args and returns the reply. Error replies are values.
	Execute(ctx context.Context, args []string) (resp.Value, error)

	// Prompt returns the prompt shown before each line, such as
	// "127.0.0.1:6379[2]> ".
	Prompt() string
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	exec      Executor
	format    output.Format
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.input = in
		r.output = out
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// WithCompleter sets the completer.
func WithCompleter(c *Completer) Option {
	return func(r *REPL) {
		r.completer = c
	}
}

// New creates a REPL executing lines with exec.
func New(exec Executor, format output.Format, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		exec:      exec,
		format:    format,
		completer: NewCompleter(),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads lines until EOF, exit or quit. Command failures are printed
// and do not stop the loop.
func (r *REPL) Run(ctx context.Context) error {
	_ = r.history.Load()
	defer func() { _ = r.history.Save() }()

	reader := bufio.NewReader(r.input)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.output, r.exec.Prompt())

		line, err := reader.ReadString('\n')
		if err == io.EOF && line == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		args, perr := SplitArgs(line)
		if perr != nil {
			fmt.Fprintf(r.output, "Invalid argument(s)\n")
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch strings.ToLower(args[0]) {
		case "exit", "quit":
			if strings.EqualFold(args[0], "quit") {
				_, _ = r.exec.Execute(ctx, args)
			}
			return nil
		case "help":
			r.help(args[1:])
			continue
		case "clear":
			fmt.Fprint(r.output, "\033[H\033[2J")
			continue
		}

		if err := r.execute(ctx, args); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
	}
}

func (r *REPL) execute(ctx context.Context, args []string) error {
	v, err := r.exec.Execute(ctx, args)
	if err != nil {
		return err
	}
	return output.ForCommand(r.format, args).Format(r.output, v)
}

func (r *REPL) help(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.output, "Type a command and press enter, or \"exit\" to leave.")
		fmt.Fprintf(r.output, "Known commands: %s\n", strings.Join(r.completer.Commands(), " "))
		return
	}
	matches := r.completer.Complete(args[0])
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "No command matches %q\n", args[0])
		return
	}
	fmt.Fprintln(r.output, strings.Join(matches, " "))
}
