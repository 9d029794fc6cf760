package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeProbeConfig(t *testing.T, baseDir, ttsBaseURL string) string {
	t.Helper()
	configPath := filepath.Join(baseDir, "config.toml")
	content := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q
ledger_dir = %q

[tts]
api_key = "test-key"
voice_id = "test-voice"
base_url = %q

[estimator]
estimation_ratio = 0.0
`,
		filepath.Join(baseDir, "output"),
		filepath.Join(baseDir, "logs"),
		filepath.Join(baseDir, "ledger"),
		ttsBaseURL,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func TestProbeCommandReportsServiceStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	configPath := writeProbeConfig(t, t.TempDir(), server.URL)

	out, _, err := runCLI(t, []string{"probe"}, configPath)
	if err != nil {
		t.Fatalf("probe: %v\noutput: %s", err, out)
	}
	requireContains(t, out, "Estimator")
	requireContains(t, out, "disabled")
	requireContains(t, out, "Synthesis")
	requireContains(t, out, "reachable")
	requireContains(t, out, "Rewrite oracle")
	requireContains(t, out, "not configured")
}

func TestProbeCommandFailsWhenSynthesisUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	configPath := writeProbeConfig(t, t.TempDir(), server.URL)

	out, _, err := runCLI(t, []string{"probe"}, configPath)
	if err == nil {
		t.Fatalf("expected probe to fail when synthesis is unreachable, output: %s", out)
	}
	requireContains(t, out, "ERROR")
}
