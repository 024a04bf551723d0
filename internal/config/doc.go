// Package config loads the settings of the tendril binary: defaults, then an
// optional YAML file, then TENDRIL_* environment variables. Command-line flags
// are applied last by the caller.
package config
