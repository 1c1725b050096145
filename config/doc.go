// Package config loads the fan-out client's YAML configuration: which
// provider families are enabled and the key records for each. Priority is
// defaults -> YAML file -> environment variable fallback.
//
// Example:
//
//	cfg, err := config.NewLoader().WithConfigPath("config.yaml").Load()
package config
