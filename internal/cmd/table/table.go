// Package table parses table command flags and composes transport entrypoints.
package table

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/greentable/vtt/internal/platform/cmd"
	server "github.com/greentable/vtt/internal/services/table/app"
)

// Config holds table command configuration.
type Config struct {
	HTTPAddr      string `env:"GREENTABLE_TABLE_HTTP_ADDR"      envDefault:":8080"`
	StoragePath   string `env:"GREENTABLE_TABLE_STORAGE_PATH"   envDefault:"table.db"`
	SessionSecret string `env:"GREENTABLE_SESSION_SECRET"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "table HTTP listen address")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "SQLite storage path")
	fs.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "session token signing secret")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the table app and starts the HTTP and realtime transport.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTable, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:      cfg.HTTPAddr,
			StoragePath:   cfg.StoragePath,
			SessionSecret: cfg.SessionSecret,
		}); err != nil {
			return fmt.Errorf("serve table: %w", err)
		}
		return nil
	})
}
