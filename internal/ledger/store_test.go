package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"srt-tts/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LedgerDir = filepath.Join(base, "ledger")

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "input.srt", 3)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if run.ID == "" || run.Status != RunStatusRunning {
		t.Fatalf("unexpected run %+v", run)
	}

	if err := store.FinishRun(ctx, run.ID, RunStatusCompleted, "out.wav", 0); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Status != RunStatusCompleted || got.OutputPath != "out.wav" {
		t.Fatalf("unexpected finished run %+v", got)
	}
	if got.EntryCount != 3 {
		t.Fatalf("expected entry count 3, got %d", got.EntryCount)
	}
	if got.FinishedAt.IsZero() {
		t.Fatal("expected finished timestamp")
	}
}

func TestRecordAndQueryEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "input.srt", 2)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}

	fitted := EntryRecord{
		Index: 1, StartMS: 0, EndMS: 2000,
		Status: EntryStatusFitted, Strategy: "estimation-shorten",
		PreAttempts: 2, EstimatedMS: 1800, RenderedMS: 1900, FinalMS: 1900,
		SpeedFactor: 1.0, Text: "shortened line",
	}
	failed := EntryRecord{
		Index: 2, StartMS: 2000, EndMS: 4000,
		Status: EntryStatusFailed, Error: "premium render failed: quota exceeded",
		SpeedFactor: 1.0, Text: "second line",
	}
	for _, record := range []EntryRecord{fitted, failed} {
		if err := store.RecordEntry(ctx, run.ID, record); err != nil {
			t.Fatalf("record entry %d: %v", record.Index, err)
		}
	}

	entries, err := store.Entries(ctx, run.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].WindowMS() != 2000 {
		t.Fatalf("expected 2000ms window, got %d", entries[0].WindowMS())
	}
	if entries[0].EstimatedMS != 1800 || entries[0].PreAttempts != 2 {
		t.Fatalf("unexpected fitted record %+v", entries[0])
	}

	failures, err := store.FailedEntries(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed entries: %v", err)
	}
	if len(failures) != 1 || failures[0].Index != 2 {
		t.Fatalf("expected only entry 2 failed, got %+v", failures)
	}
	if failures[0].Error == "" {
		t.Fatal("failure must retain its error context")
	}
}

func TestRecordEntryUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, "input.srt", 1)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}

	record := EntryRecord{Index: 1, StartMS: 0, EndMS: 1000, Status: EntryStatusFailed, SpeedFactor: 1.0}
	if err := store.RecordEntry(ctx, run.ID, record); err != nil {
		t.Fatalf("record: %v", err)
	}
	record.Status = EntryStatusFitted
	record.FinalMS = 900
	if err := store.RecordEntry(ctx, run.ID, record); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	entries, err := store.Entries(ctx, run.ID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != EntryStatusFitted || entries[0].FinalMS != 900 {
		t.Fatalf("expected upserted record, got %+v", entries)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.BeginRun(ctx, "a.srt", 1)
	if err != nil {
		t.Fatalf("begin first: %v", err)
	}
	if err := store.FinishRun(ctx, first.ID, RunStatusCompleted, "", 0); err != nil {
		t.Fatalf("finish first: %v", err)
	}
	second, err := store.BeginRun(ctx, "b.srt", 1)
	if err != nil {
		t.Fatalf("begin second: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second.ID {
		t.Fatalf("expected newest run first, got %q", runs[0].ID)
	}
}
