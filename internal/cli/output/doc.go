// Package output renders RESP replies for respkv-cli.
//
//   - formatter.go: Formatter interface and factory
//   - text.go: redis-cli style human output
//   - raw.go: unquoted output for scripts
//   - json.go, yaml.go: structured output
package output
