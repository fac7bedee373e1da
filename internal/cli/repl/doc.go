// Package repl provides the interactive mode of respkv-cli.
//
//   - repl.go: read-eval-print loop
//   - parse.go: splitting input lines into arguments
//   - completer.go: command name completion
//   - history.go: command history persistence
package repl
