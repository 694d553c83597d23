package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/stevemurr/persiston/adapter"
	"github.com/stevemurr/persiston/codec"
)

// config is the server configuration. Values come from flags, then
// environment variables, then the optional TOML file, then defaults.
type config struct {
	Host     string   `toml:"host"`
	Port     string   `toml:"port"`
	Backend  string   `toml:"backend"`
	Target   string   `toml:"target"`
	Codec    string   `toml:"codec"`
	Origins  []string `toml:"allowed_origins"`
	LogLevel string   `toml:"log_level"`
	Watch    bool     `toml:"watch"`
	S3       s3Config `toml:"s3"`
}

type s3Config struct {
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

func defaultConfig() config {
	return config{
		Host:     "0.0.0.0",
		Port:     "8080",
		Backend:  "file",
		Target:   "./data/persiston.json",
		Codec:    "json",
		Origins:  []string{"*"},
		LogLevel: "info",
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig builds the configuration from the command line arguments and
// the environment.
func loadConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("persiston", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a TOML config file")
	host := fs.String("host", "", "Address to listen on")
	port := fs.String("port", "", "Port to listen on")
	backend := fs.String("backend", "", "Storage backend (file, sqlite, memory, s3)")
	target := fs.String("target", "", "File path, SQLite path or s3://bucket/key")
	codecName := fs.String("codec", "", "Serialization (json, yaml, bson)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	watch := fs.Bool("watch", false, "Reload the dataset when the file backend's file changes")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if fs.NArg() > 0 {
		return config{}, fmt.Errorf("unknown arguments: %v", fs.Args())
	}

	cfg := defaultConfig()
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			return config{}, fmt.Errorf("failed to read config %s: %w", *configPath, err)
		}
	}

	cfg.Host = env("HOST", cfg.Host)
	cfg.Port = env("PORT", cfg.Port)
	cfg.Backend = env("PERSISTON_BACKEND", cfg.Backend)
	cfg.Target = env("PERSISTON_TARGET", cfg.Target)
	cfg.Codec = env("PERSISTON_CODEC", cfg.Codec)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Origins = strings.Split(v, ",")
	}
	cfg.S3.Region = env("S3_REGION", cfg.S3.Region)
	cfg.S3.Endpoint = env("S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.AccessKey = env("S3_ACCESS_KEY", cfg.S3.AccessKey)
	cfg.S3.SecretKey = env("S3_SECRET_KEY", cfg.S3.SecretKey)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = *host
		case "port":
			cfg.Port = *port
		case "backend":
			cfg.Backend = *backend
		case "target":
			cfg.Target = *target
		case "codec":
			cfg.Codec = *codecName
		case "log-level":
			cfg.LogLevel = *logLevel
		case "watch":
			cfg.Watch = *watch
		}
	})
	return cfg, nil
}

func (c config) addr() string {
	return c.Host + ":" + c.Port
}

func (c config) level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level: %q", c.LogLevel)
}

func (c config) adapterConfig() (adapter.Config, error) {
	cd, err := codec.ByName(c.Codec)
	if err != nil {
		return adapter.Config{}, err
	}
	return adapter.Config{
		Backend: c.Backend,
		Target:  c.Target,
		Codec:   cd,
		S3: adapter.S3Config{
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
		},
	}, nil
}

// watchable reports whether the backend keeps the dataset in a local file.
func (c config) watchable() bool {
	switch c.Backend {
	case "file", "json", "":
		return true
	}
	return false
}
