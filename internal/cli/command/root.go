package command

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/tlsconf"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "respkv-cli",
		Usage:     "command-line client for respkv-server",
		UsageText: "respkv-cli [options] [command [arg ...]]",
		Version:   buildinfo.String(),
		Flags:     globalFlags(),
		Action:    run,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Usage:   "Server hostname",
			EnvVars: []string{"RESPKV_HOST"},
			Value:   "127.0.0.1",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Server port",
			EnvVars: []string{"RESPKV_PORT"},
			Value:   6379,
		},
		&cli.StringFlag{
			Name:    "socket",
			Aliases: []string{"s"},
			Usage:   "Server Unix socket, overrides host and port",
		},
		&cli.StringFlag{
			Name:    "pass",
			Aliases: []string{"a"},
			Usage:   "Password to AUTH with",
			EnvVars: []string{"RESPKV_AUTH"},
		},
		&cli.StringFlag{
			Name:  "user",
			Usage: "Username to AUTH with",
		},
		&cli.IntFlag{
			Name:    "db",
			Aliases: []string{"n"},
			Usage:   "Database number",
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "Connect with TLS",
		},
		&cli.StringFlag{
			Name:  "cacert",
			Usage: "CA certificate file to verify the server with",
		},
		&cli.StringFlag{
			Name:  "cert",
			Usage: "Client certificate file for mutual TLS",
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "Client private key file for mutual TLS",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip server certificate verification",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: text, raw, json, yaml",
			Value:   string(output.FormatText),
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "Shorthand for --output raw",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-command timeout",
			Value: 30 * time.Second,
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not read or write the history file",
		},
	}
}

// GlobalFlags holds the parsed global flags.
type GlobalFlags struct {
	Options connection.Options
	Output  output.Format
	History bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	if c.Bool("raw") {
		format = output.FormatRaw
	}

	opts := connection.Options{
		Addr:        net.JoinHostPort(c.String("host"), strconv.Itoa(c.Int("port"))),
		Socket:      c.String("socket"),
		Username:    c.String("user"),
		Password:    c.String("pass"),
		DB:          c.Int("db"),
		TLS:         c.Bool("tls"),
		DialTimeout: 5 * time.Second,
		Timeout:     c.Duration("timeout"),
	}
	if opts.TLS {
		cfg, err := clientTLS(c)
		if err != nil {
			return nil, err
		}
		opts.TLSConfig = cfg
	}

	return &GlobalFlags{
		Options: opts,
		Output:  format,
		History: !c.Bool("no-history"),
	}, nil
}

func clientTLS(c *cli.Context) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         c.String("host"),
		InsecureSkipVerify: c.Bool("insecure"),
	}
	if path := c.String("cacert"); path != "" {
		pool, err := tlsconf.LoadCAPool(path)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if cert, key := c.String("cert"), c.String("key"); cert != "" || key != "" {
		pair, err := tls.LoadX509KeyPair(cert, key)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	return cfg, nil
}
