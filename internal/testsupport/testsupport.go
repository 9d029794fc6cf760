package testsupport

import (
	"path/filepath"
	"testing"

	"srt-tts/internal/config"
)

// NewConfig returns a validated default configuration rooted in a temporary
// directory, with fake credentials so synthesis checks pass.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LedgerDir = filepath.Join(base, "ledger")
	cfg.TTS.APIKey = "test-key"
	cfg.TTS.VoiceID = "test-voice"
	cfg.LLM.APIKey = "test-key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}
