package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ARK_API_KEY", "ARK_MODEL", "Model", "TRANSLATE_PROVIDER", "SARVAM_API_KEY", "SESSION_STORE", "SESSION_STORE_PATH", "TRANSLATE_DEBOUNCE_MS", "SOURCE_LANGUAGE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if cfg.AI.Enabled() {
		t.Fatalf("ai should be disabled without credentials")
	}
	if cfg.Translate.Provider != TranslateProviderSarvam || cfg.Translate.Enabled() {
		t.Fatalf("unexpected translate config %+v", cfg.Translate)
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("unexpected store backend %s", cfg.Store.Backend)
	}
	if cfg.Pipeline.DebounceQuiet != 500*time.Millisecond || cfg.Pipeline.SourceLanguage != "kn-IN" {
		t.Fatalf("unexpected pipeline config %+v", cfg.Pipeline)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("ARK_MODEL", "doubao-pro")
	t.Setenv("SARVAM_API_KEY", "sarvam")
	t.Setenv("TRANSLATE_TIMEOUT", "5")
	t.Setenv("SESSION_STORE", "sqlite")
	t.Setenv("SESSION_STORE_PATH", "")
	t.Setenv("TRANSLATE_DEBOUNCE_MS", "750")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if !cfg.AI.Enabled() || cfg.AI.Model != "doubao-pro" {
		t.Fatalf("expected ai enabled, got %+v", cfg.AI)
	}
	if !cfg.Translate.Enabled() || cfg.Translate.Timeout != 5*time.Second {
		t.Fatalf("unexpected translate config %+v", cfg.Translate)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "data/golden-hour.db" {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if opts := cfg.Store.Options(); opts.Backend != "sqlite" || opts.Path != cfg.Store.Path {
		t.Fatalf("unexpected storage options %+v", opts)
	}
	if cfg.Pipeline.DebounceQuiet != 750*time.Millisecond {
		t.Fatalf("unexpected debounce %v", cfg.Pipeline.DebounceQuiet)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"TRANSLATE_PROVIDER":    "google",
		"SESSION_STORE":         "etcd",
		"TRANSLATE_DEBOUNCE_MS": "0",
		"AI_TRIAGE_ENABLED":     "maybe",
		"PORT":                  "80 80",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}
