// Package config provides loading and environment overlay for the service
// configuration. It exposes a Default() baseline, file loading (JSON or YAML),
// and an env overlay using the same variable names as the deployment.
//
// Example:
//
//	cfg, err := config.Load("/etc/audiolog.yaml")
//	if err != nil { /* handle */ }
//	if err := config.FromEnv(&cfg, ".env"); err != nil { /* handle */ }
//	if err := cfg.Validate(); err != nil { /* handle */ }
package config
