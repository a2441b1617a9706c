package table

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.StoragePath != "table.db" {
		t.Errorf("StoragePath = %q, want table.db", cfg.StoragePath)
	}
}

func TestParseConfigFlagOverride(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-http-addr", ":9090",
		"-storage-path", "/tmp/custom.db",
		"-session-secret", "s3cret",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.StoragePath != "/tmp/custom.db" || cfg.SessionSecret != "s3cret" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
