package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"srt-tts/internal/ledger"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q
ledger_dir = %q

[tts]
api_key = "test-key"
voice_id = "test-voice"

[estimator]
estimation_ratio = 0.0

[pipeline]
audio_tags = false
`,
		filepath.Join(base, "output"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "ledger"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got %q", want, output)
	}
}

func TestConfigInitCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(env.baseDir, "fresh", "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// Refuses to clobber without --overwrite.
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
}

func TestRunsCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No recorded runs")
}

func TestRunsCommandListsAndShowsFailures(t *testing.T) {
	env := setupCLITestEnv(t)

	cfg, err := newCommandContext(&env.configPath).ensureConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	ctx := context.Background()
	run, err := store.BeginRun(ctx, "movie.srt", 2)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	record := ledger.EntryRecord{
		Index: 2, StartMS: 1000, EndMS: 3000,
		Status: ledger.EntryStatusFailed, Error: "render quota exceeded",
		SpeedFactor: 1.0,
	}
	if err := store.RecordEntry(ctx, run.ID, record); err != nil {
		t.Fatalf("record entry: %v", err)
	}
	if err := store.FinishRun(ctx, run.ID, ledger.RunStatusPartial, "", 1); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "movie.srt")
	requireContains(t, out, ledger.RunStatusPartial)

	out, _, err = runCLI(t, []string{"runs", "failures", run.ID}, env.configPath)
	if err != nil {
		t.Fatalf("runs failures: %v", err)
	}
	requireContains(t, out, "render quota exceeded")

	out, _, err = runCLI(t, []string{"runs", "show", run.ID}, env.configPath)
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, run.ID)
	requireContains(t, out, "failed")
}

func TestRunCommandTextOnly(t *testing.T) {
	env := setupCLITestEnv(t)

	srtPath := filepath.Join(env.baseDir, "movie.srt")
	srt := `1
00:00:00,000 --> 00:00:02,000
Hello there.

2
00:00:02,500 --> 00:00:04,500
Second line.
`
	if err := os.WriteFile(srtPath, []byte(srt), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	out, _, err := runCLI(t, []string{"run", "--text-only", srtPath}, env.configPath)
	if err != nil {
		t.Fatalf("run --text-only: %v", err)
	}
	requireContains(t, out, "Manifest:")

	manifestPath := filepath.Join(env.baseDir, "output", "movie.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	requireContains(t, string(data), "Hello there.")
}

func TestRunCommandRejectsMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"run", filepath.Join(env.baseDir, "missing.srt")}, env.configPath); err == nil {
		t.Fatal("expected run against a missing file to fail")
	}
}
