package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/server/redisserver"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "respkv-server",
		Usage:   "Redis-compatible key-value server",
		Version: buildinfo.String(),
		Flags:   serverFlags(),
		Action:  runServer,
		Commands: []*cli.Command{
			{
				Name:   "version",
				Usage:  "Show version information",
				Action: printVersion,
			},
			{
				Name:      "hash-password",
				Usage:     "Print the argon2id hash of a password for server.requirepass",
				ArgsUsage: "[password]",
				Action:    hashPassword,
			},
		},
	}
}

// serverFlags returns the flags that override configuration keys.
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML configuration file",
			EnvVars: []string{"RESPKV_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "bind",
			Usage: "Listen address",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Listen port",
		},
		&cli.StringFlag{
			Name:  "requirepass",
			Usage: "Password clients must AUTH with (plain text or argon2id hash)",
		},
		&cli.StringFlag{
			Name:  "unixsocket",
			Usage: "Path of an additional Unix domain socket listener",
		},
		&cli.IntFlag{
			Name:  "databases",
			Usage: "Number of databases",
		},
		&cli.StringFlag{
			Name:  "engine",
			Usage: "Storage engine: memory or badger",
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Data directory of the badger engine",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn or error",
		},
	}
}

// flagKeys maps each flag to the configuration key it overrides.
var flagKeys = map[string]string{
	"bind":        "server.bind",
	"port":        "server.port",
	"requirepass": "server.requirepass",
	"unixsocket":  "server.unixsocket",
	"databases":   "server.databases",
	"engine":      "storage.engine",
	"dir":         "storage.dir",
	"log-level":   "log.level",
}

// flagOverrides returns the configuration keys of the flags set on the
// command line. Unset flags do not override file or environment values.
func flagOverrides(c *cli.Context) map[string]any {
	out := make(map[string]any)
	for flag, key := range flagKeys {
		if !c.IsSet(flag) {
			continue
		}
		out[key] = c.Value(flag)
	}
	return out
}

func printVersion(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "respkv-server %s\n", buildinfo.String())
	return nil
}

func hashPassword(c *cli.Context) error {
	password := c.Args().First()
	if password == "" {
		fmt.Fprint(c.App.ErrWriter, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("empty password")
	}

	phc, err := redisserver.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, phc)
	return nil
}
