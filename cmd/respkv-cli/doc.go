// Package main provides the entry point for respkv-cli.
//
// respkv-cli sends commands to a respkv-server (or any RESP2 server). With
// command arguments it runs that command and exits; without them it starts
// an interactive prompt.
//
// Usage:
//
//	respkv-cli [--host 127.0.0.1] [-p 6379] [-a password] [-n db] [command [arg ...]]
package main
