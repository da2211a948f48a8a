// Package config provides configuration management for permsync.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file, with defaults taken from struct tags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all settings, divided
// into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Storage: object storage credentials backing the org sources
//   - Database: MySQL connection for the operation audit log
//   - Log: logging level and format
//   - Guard: rate limit, circuit breaker, and worker pool tuning
//   - Cache: payload cache directory and TTL
//   - Sync: org source aliases, API version, local metadata root
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
