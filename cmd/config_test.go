package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseConfig(t *testing.T) {
	t.Setenv("TEST_SOLR_HOST", "http://solr.example.ca:8983/solr")
	t.Setenv("OGC_SEARCH_WS_SOLR_HOST", "")

	cfg, err := parseConfig([]byte(`
service:
  default_dataset: ati
solr:
  host: "${TEST_SOLR_HOST}"
redis:
  url: "${TEST_UNSET_REDIS:-redis://localhost:6379/1}"
export:
  max_age: 15m
`))
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}

	if cfg.Solr.Host != "http://solr.example.ca:8983/solr" {
		t.Errorf("env var not expanded: %q", cfg.Solr.Host)
	}

	if cfg.Redis.URL != "redis://localhost:6379/1" {
		t.Errorf("default not applied: %q", cfg.Redis.URL)
	}

	if cfg.Export.MaxAge != 15*time.Minute || cfg.Export.JanitorAge != 30*time.Minute {
		t.Errorf("unexpected export durations: %+v", cfg.Export)
	}

	if cfg.Service.Port != "8080" || len(cfg.Service.Languages) != 2 || cfg.Service.DefaultDataset != "ati" {
		t.Errorf("unexpected service defaults: %+v", cfg.Service)
	}
}

func TestParseConfigErrors(t *testing.T) {
	t.Setenv("OGC_SEARCH_WS_SOLR_HOST", "")

	tests := []string{
		"solr: {}\n",
		"solr:\n  host: not-a-url\n",
		"solr:\n  host: http://x\nservice:\n  languages: [en, de]\n",
		"solr:\n  host: http://x\nunknown: 1\n",
	}

	for _, data := range tests {
		if _, err := parseConfig([]byte(data)); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}

func TestParseConfigHostOverride(t *testing.T) {
	t.Setenv("OGC_SEARCH_WS_SOLR_HOST", "http://override:8983/solr")

	cfg, err := parseConfig([]byte("solr:\n  host: http://x\n"))
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}

	if cfg.Solr.Host != "http://override:8983/solr" {
		t.Errorf("override ignored: %q", cfg.Solr.Host)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	t.Setenv("OGC_SEARCH_WS_SOLR_HOST", "")

	path := filepath.Join("..", defaultConfigPath("local"))
	if _, err := os.Stat(path); err != nil {
		t.Skip("no local config")
	}

	cfg, err := loadConfig(path, testLogger())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Export.MaxAge != 10*time.Minute {
		t.Errorf("unexpected export max age %s", cfg.Export.MaxAge)
	}
}
