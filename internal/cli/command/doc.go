// Package command defines the respkv-cli application using urfave/cli/v2.
//
//   - root.go: application, global flags and connection options
//   - run.go: single-command mode and interactive mode
package command
