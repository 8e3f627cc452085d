// Package config loads drawchat's configuration.
//
// Sources, later wins:
//  1. built-in defaults
//  2. the YAML file (optional)
//  3. process environment, after loading an optional .env file, with the
//     DRAWCHAT_ prefix (DRAWCHAT_STORE_DRIVER, DRAWCHAT_LOG_LEVEL, ...)
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.yaml.in/yaml/v3"

	"drawchat/internal/broadcast"
	"drawchat/internal/census"
	"drawchat/internal/gateway"
	"drawchat/internal/session"
	"drawchat/pkg/logx"
)

const EnvPrefix = "DRAWCHAT"

type Config struct {
	Server    gateway.Config   `yaml:"server"`
	Store     session.Config   `yaml:"store"`
	Broadcast broadcast.Config `yaml:"broadcast"`
	Census    census.Config    `yaml:"census"`
	Log       logx.Config      `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: gateway.Config{
			Addr:         ":12345",
			Path:         "/ws",
			ReadLimit:    64 << 10,
			WriteTimeout: 10 * time.Second,
			PongWait:     60 * time.Second,
			SendBuffer:   64,
			InboundRate:  50,
			InboundBurst: 100,
		},
		Store: session.Config{Driver: "memory"},
		Broadcast: broadcast.Config{
			DeliveryTimeout: 10 * time.Second,
		},
		Census: census.Config{Enabled: true, Schedule: "@every 1m"},
		Log:    logx.Config{Level: "info", Format: "console"},
	}
}

// Load builds the effective configuration. A missing YAML file or .env file
// is not an error; a malformed one is.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := decodeYAML(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.Path != "" && !strings.HasPrefix(c.Server.Path, "/") {
		errs = append(errs, fmt.Errorf("server.path %q must start with /", c.Server.Path))
	}
	for name, d := range map[string]time.Duration{
		"server.write_timeout":       c.Server.WriteTimeout,
		"server.pong_wait":           c.Server.PongWait,
		"broadcast.delivery_timeout": c.Broadcast.DeliveryTimeout,
		"store.sqlite.busy_timeout":  c.Store.SQLite.BusyTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: duration must be >= 0", name))
		}
	}
	if c.Broadcast.MaxInFlight < 0 {
		errs = append(errs, errors.New("broadcast.max_in_flight must be >= 0"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "", "memory", "redis", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if _, err := logx.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}
