// Package config defines the respkv-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation of a loaded configuration
//   - sanitize.go: Copy safe for logging (secrets masked)
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// RESPKV_ environment variables and command-line flags.
package config
