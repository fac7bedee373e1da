// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Command-line flags (LoadMap with dotted keys)
//  2. Environment variables (RESPKV_ prefix)
//  3. YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports changes to a configuration file so that reloadable
// settings can be applied without a restart.
package confloader
