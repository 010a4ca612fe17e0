// Package config provides functionality for managing configuration options
// for the client using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Options holds the configuration values for the client.
type Options struct {
	// ServerURL is the base URL of the StyleGuard API.
	ServerURL string

	// TimeoutSeconds bounds every outbound request.
	TimeoutSeconds int

	// StateFile is the path of the persisted session mirror.
	StateFile string

	// LogLevel sets the logging verbosity (Debug, Info, Warn, Error).
	LogLevel string

	// Config is the path to the config file.
	Config string
}

// Defaults returns an Options populated with the built-in defaults.
func Defaults() *Options {
	return &Options{
		ServerURL:      "http://localhost:8000",
		TimeoutSeconds: 15,
		StateFile:      "session.json",
		LogLevel:       "Info",
	}
}

// Timeout returns the request timeout as a duration.
func (o *Options) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Resolve applies the optional JSON config file and environment variable
// overrides on top of the flag-populated options. Environment variables
// win over the file, the file wins over flag defaults.
func Resolve(options *Options) *Options {
	if configPath := os.Getenv("STYLEGUARD_CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverURL := os.Getenv("STYLEGUARD_SERVER_URL"); serverURL != "" {
		options.ServerURL = serverURL
	}
	if stateFile := os.Getenv("STYLEGUARD_STATE_FILE"); stateFile != "" {
		options.StateFile = stateFile
	}
	if logLevel := os.Getenv("STYLEGUARD_LOG_LEVEL"); logLevel != "" {
		options.LogLevel = logLevel
	}

	return options
}
