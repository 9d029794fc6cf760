package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.Fitting.EstimateShortenRetries != 8 {
		t.Fatalf("expected 8 estimate shorten retries, got %d", cfg.Fitting.EstimateShortenRetries)
	}
	if cfg.Fitting.RenderShortenRetries != 2 {
		t.Fatalf("expected 2 render shorten retries, got %d", cfg.Fitting.RenderShortenRetries)
	}
	if cfg.Estimator.Ratio != 0.9 {
		t.Fatalf("expected estimation ratio 0.9, got %v", cfg.Estimator.Ratio)
	}
	if cfg.Timeline.MarginMS != 100 {
		t.Fatalf("expected margin 100ms, got %d", cfg.Timeline.MarginMS)
	}
	if cfg.Pipeline.OnEntryFailure != "abort" {
		t.Fatalf("expected abort failure policy, got %q", cfg.Pipeline.OnEntryFailure)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("expected default workers, got %d", cfg.Pipeline.Workers)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[estimator]
estimation_ratio = 0.0

[fitting]
estimate_shorten_retries = 3

[pipeline]
workers = 2
on_entry_failure = "SKIP"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved existing path %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Estimator.Ratio != 0 {
		t.Fatalf("expected ratio override 0, got %v", cfg.Estimator.Ratio)
	}
	if cfg.Fitting.EstimateShortenRetries != 3 {
		t.Fatalf("expected retries override 3, got %d", cfg.Fitting.EstimateShortenRetries)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Fatalf("expected workers override 2, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.OnEntryFailure != "skip" {
		t.Fatalf("expected normalized skip policy, got %q", cfg.Pipeline.OnEntryFailure)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative estimate retries", func(c *Config) { c.Fitting.EstimateShortenRetries = -1 }, "estimate_shorten_retries"},
		{"negative render retries", func(c *Config) { c.Fitting.RenderShortenRetries = -1 }, "render_shorten_retries"},
		{"threshold below one", func(c *Config) { c.Fitting.SpeedThreshold = 0.5 }, "speed_threshold"},
		{"ceiling below threshold", func(c *Config) { c.Fitting.MaxSpeedFactor = 0.9 }, "max_speed_factor"},
		{"slack above one", func(c *Config) { c.Fitting.ShortenSlack = 1.5 }, "shorten_slack"},
		{"negative margin", func(c *Config) { c.Timeline.MarginMS = -5 }, "margin_ms"},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, "workers"},
		{"unknown failure policy", func(c *Config) { c.Pipeline.OnEntryFailure = "retry" }, "on_entry_failure"},
		{"oversized ratio", func(c *Config) { c.Estimator.Ratio = 3 }, "estimation_ratio"},
		{"bad language tag", func(c *Config) { c.Estimator.Language = "not a tag" }, "language"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %q", tc.want, err.Error())
			}
		})
	}
}

func TestValidateAllowsDisabledEstimation(t *testing.T) {
	cfg := Default()
	cfg.Estimator.Ratio = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ratio 0 must validate (estimation disabled): %v", err)
	}
	cfg.Estimator.Ratio = -1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("negative ratio must validate (estimation disabled): %v", err)
	}
}

func TestValidateSynthesisRequiresCredentials(t *testing.T) {
	cfg := Default()
	cfg.TTS.APIKey = ""
	if err := cfg.ValidateSynthesis(); err == nil {
		t.Fatal("expected missing api key error")
	}
	cfg.TTS.APIKey = "key"
	cfg.TTS.VoiceID = ""
	if err := cfg.ValidateSynthesis(); err == nil {
		t.Fatal("expected missing voice id error")
	}
	cfg.TTS.VoiceID = "voice"
	if err := cfg.ValidateSynthesis(); err != nil {
		t.Fatalf("expected credentials to pass, got %v", err)
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("TTS_API_KEY", "env-tts")
	t.Setenv("TTS_VOICE_ID", "env-voice")
	t.Setenv("LLM_API_KEY", "env-llm")

	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TTS.APIKey != "env-tts" || cfg.TTS.VoiceID != "env-voice" {
		t.Fatalf("expected tts env fallbacks, got %q / %q", cfg.TTS.APIKey, cfg.TTS.VoiceID)
	}
	if cfg.LLM.APIKey != "env-llm" {
		t.Fatalf("expected llm env fallback, got %q", cfg.LLM.APIKey)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	expanded, err := expandPath("~/narration")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if expanded != filepath.Join(home, "narration") {
		t.Fatalf("expected home-joined path, got %q", expanded)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[fitting]") {
		t.Fatal("sample config missing fitting section")
	}
}
