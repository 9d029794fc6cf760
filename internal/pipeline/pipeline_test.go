package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"srt-tts/internal/audio"
	"srt-tts/internal/fitting"
	"srt-tts/internal/ledger"
	"srt-tts/internal/testsupport"
	"srt-tts/internal/timeline"
)

const testSRT = `1
00:00:00,000 --> 00:00:02,000
Hello there.

2
00:00:02,500 --> 00:00:04,500
This is the second line.

3
00:00:05,000 --> 00:00:06,500
And a third one.
`

func writeSRT(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.srt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	return path
}

// fakeRenderer synthesizes a fixed-duration clip per call, with optional
// per-text failures.
type fakeRenderer struct {
	mu        sync.Mutex
	duration  time.Duration
	failTexts map[string]error
	calls     int
}

func (f *fakeRenderer) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failTexts[text]; ok {
		return nil, err
	}
	return audio.NewSilence(44100, f.duration), nil
}

type fakeAnnotator struct {
	err   error
	calls atomic.Int64
}

func (f *fakeAnnotator) Annotate(_ context.Context, text string, _, _ []string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return "[calm] " + text, nil
}

func newTestPipeline(t *testing.T, renderer fitting.RenderOracle, annotator Annotator) (*Pipeline, *ledger.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.Workers = 2
	cfg.Estimator.Ratio = 0 // no estimation oracle in tests

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	estimator := fitting.NewEstimator(nil, 0, nil)
	shortener := fitting.NewShortener(nil, cfg.Fitting.ShortenSlack, 0.9, nil)
	fitter := fitting.NewFitter(estimator, renderer, shortener, cfg.Fitting, nil)
	return New(cfg, fitter, annotator, store, nil), store
}

func TestRunProducesTrackAndManifest(t *testing.T) {
	source := writeSRT(t, testSRT)
	renderer := &fakeRenderer{duration: 1200 * time.Millisecond}
	pipeline, store := newTestPipeline(t, renderer, nil)

	outcome, err := pipeline.Run(context.Background(), source, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.EntryCount != 3 || outcome.FittedCount != 3 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	clip, err := audio.ReadWAVFile(outcome.OutputPath)
	if err != nil {
		t.Fatalf("read track: %v", err)
	}
	// Last entry starts at 5000ms and carries a 1200ms clip.
	if got := clip.DurationMS(); got < 6199 || got > 6201 {
		t.Fatalf("expected ~6200ms track, got %dms", got)
	}

	data, err := os.ReadFile(outcome.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest timeline.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.Source != source || len(manifest.Subtitles) != 3 {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
	if manifest.Subtitles[0].StartMS != 0 || manifest.Subtitles[2].StartMS != 5000 {
		t.Fatalf("unexpected manifest timings %+v", manifest.Subtitles)
	}

	run, err := store.GetRun(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != ledger.RunStatusCompleted {
		t.Fatalf("expected completed run, got %q", run.Status)
	}
	entries, err := store.Entries(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Status != ledger.EntryStatusFitted {
			t.Fatalf("expected fitted entry, got %+v", entry)
		}
	}
}

func TestRunSkipPolicyKeepsGoing(t *testing.T) {
	source := writeSRT(t, testSRT)
	renderer := &fakeRenderer{
		duration:  1200 * time.Millisecond,
		failTexts: map[string]error{"This is the second line.": errors.New("quota exceeded")},
	}
	pipeline, store := newTestPipeline(t, renderer, nil)
	pipeline.cfg.Pipeline.OnEntryFailure = "skip"

	outcome, err := pipeline.Run(context.Background(), source, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.FailedCount != 1 || outcome.FittedCount != 2 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	run, err := store.GetRun(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != ledger.RunStatusPartial {
		t.Fatalf("expected partial run, got %q", run.Status)
	}
	if run.FailedCount != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", run.FailedCount)
	}

	failures, err := store.FailedEntries(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("failed entries: %v", err)
	}
	if len(failures) != 1 || failures[0].Index != 2 {
		t.Fatalf("expected entry 2 to fail, got %+v", failures)
	}
	if !strings.Contains(failures[0].Error, "quota exceeded") {
		t.Fatalf("failure should retain the cause, got %q", failures[0].Error)
	}

	// The surviving neighbors still land at their natural starts.
	var manifest timeline.Manifest
	data, err := os.ReadFile(outcome.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(manifest.Subtitles) != 2 {
		t.Fatalf("expected 2 placed entries, got %d", len(manifest.Subtitles))
	}
}

func TestRunAbortPolicyStopsRun(t *testing.T) {
	source := writeSRT(t, testSRT)
	renderer := &fakeRenderer{
		duration:  1200 * time.Millisecond,
		failTexts: map[string]error{"Hello there.": errors.New("boom")},
	}
	pipeline, store := newTestPipeline(t, renderer, nil)
	pipeline.cfg.Pipeline.OnEntryFailure = "abort"
	// One worker keeps the failure ordering deterministic: entry 1 fails and
	// cancels the run before entries 2 and 3 can render.
	pipeline.cfg.Pipeline.Workers = 1

	outcome, err := pipeline.Run(context.Background(), source, Options{})
	if err == nil {
		t.Fatal("expected run to fail under abort policy")
	}
	if outcome.OutputPath != "" {
		t.Fatalf("aborted run must not produce a track, got %q", outcome.OutputPath)
	}
	if outcome.FailedCount != 1 || outcome.SkippedCount != 2 {
		t.Fatalf("expected 1 failed and 2 skipped, got %+v", outcome)
	}

	run, gerr := store.GetRun(context.Background(), outcome.RunID)
	if gerr != nil {
		t.Fatalf("get run: %v", gerr)
	}
	if run.Status != ledger.RunStatusFailed {
		t.Fatalf("expected failed run, got %q", run.Status)
	}
	if run.FailedCount != 3 {
		t.Fatalf("expected all 3 entries counted as missing, got %d", run.FailedCount)
	}

	// The entry that broke the run stays failed; cancelled entries are
	// skipped so a re-run query singles out the real failure.
	entries, eerr := store.Entries(context.Background(), outcome.RunID)
	if eerr != nil {
		t.Fatalf("entries: %v", eerr)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 recorded entries, got %d", len(entries))
	}
	for _, entry := range entries {
		switch entry.Index {
		case 1:
			if entry.Status != ledger.EntryStatusFailed || !strings.Contains(entry.Error, "boom") {
				t.Fatalf("expected entry 1 failed with its cause, got %+v", entry)
			}
		default:
			if entry.Status != ledger.EntryStatusSkipped {
				t.Fatalf("expected entry %d skipped, got %+v", entry.Index, entry)
			}
		}
	}
}

func TestRunAnnotatesEntries(t *testing.T) {
	source := writeSRT(t, testSRT)
	renderer := &fakeRenderer{duration: 1000 * time.Millisecond}
	annotator := &fakeAnnotator{}
	pipeline, _ := newTestPipeline(t, renderer, annotator)
	pipeline.cfg.Pipeline.AudioTags = true

	outcome, err := pipeline.Run(context.Background(), source, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := annotator.calls.Load(); got != 3 {
		t.Fatalf("expected 3 annotation calls, got %d", got)
	}

	var manifest timeline.Manifest
	data, err := os.ReadFile(outcome.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if !strings.HasPrefix(manifest.Subtitles[0].TaggedText, "[calm] ") {
		t.Fatalf("expected tagged text, got %q", manifest.Subtitles[0].TaggedText)
	}
	if manifest.Subtitles[0].OriginalText != "Hello there." {
		t.Fatalf("original text must survive annotation, got %q", manifest.Subtitles[0].OriginalText)
	}
}

func TestRunAnnotationFailureFallsBack(t *testing.T) {
	source := writeSRT(t, testSRT)
	renderer := &fakeRenderer{duration: 1000 * time.Millisecond}
	annotator := &fakeAnnotator{err: errors.New("llm down")}
	pipeline, _ := newTestPipeline(t, renderer, annotator)
	pipeline.cfg.Pipeline.AudioTags = true

	outcome, err := pipeline.Run(context.Background(), source, Options{})
	if err != nil {
		t.Fatalf("annotation failure must not fail the run: %v", err)
	}
	if outcome.FittedCount != 3 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestRunNoTagsSkipsAnnotation(t *testing.T) {
	source := writeSRT(t, testSRT)
	renderer := &fakeRenderer{duration: 1000 * time.Millisecond}
	annotator := &fakeAnnotator{}
	pipeline, _ := newTestPipeline(t, renderer, annotator)
	pipeline.cfg.Pipeline.AudioTags = true

	if _, err := pipeline.Run(context.Background(), source, Options{NoTags: true}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := annotator.calls.Load(); got != 0 {
		t.Fatalf("expected no annotation calls, got %d", got)
	}
}

func TestRunTextOnlySkipsSynthesis(t *testing.T) {
	source := writeSRT(t, testSRT)
	renderer := &fakeRenderer{duration: 1000 * time.Millisecond}
	annotator := &fakeAnnotator{}
	pipeline, store := newTestPipeline(t, renderer, annotator)
	pipeline.cfg.Pipeline.AudioTags = true

	outcome, err := pipeline.Run(context.Background(), source, Options{TextOnly: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if renderer.calls != 0 {
		t.Fatalf("text-only mode must not synthesize, got %d calls", renderer.calls)
	}
	if outcome.OutputPath != "" {
		t.Fatalf("text-only mode must not produce audio, got %q", outcome.OutputPath)
	}
	if outcome.ManifestPath == "" {
		t.Fatal("expected a manifest path")
	}

	var manifest timeline.Manifest
	data, err := os.ReadFile(outcome.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(manifest.Subtitles) != 3 {
		t.Fatalf("expected 3 manifest entries, got %d", len(manifest.Subtitles))
	}
	// Timings stay natural since nothing was placed.
	if manifest.Subtitles[1].StartMS != 2500 || manifest.Subtitles[1].EndMS != 4500 {
		t.Fatalf("unexpected timings %+v", manifest.Subtitles[1])
	}

	run, err := store.GetRun(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != ledger.RunStatusCompleted {
		t.Fatalf("expected completed run, got %q", run.Status)
	}
}

func TestRunExplicitOutputPath(t *testing.T) {
	source := writeSRT(t, testSRT)
	renderer := &fakeRenderer{duration: 1000 * time.Millisecond}
	pipeline, _ := newTestPipeline(t, renderer, nil)

	target := filepath.Join(t.TempDir(), "narration.wav")
	outcome, err := pipeline.Run(context.Background(), source, Options{OutputPath: target})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.OutputPath != target {
		t.Fatalf("expected output at %q, got %q", target, outcome.OutputPath)
	}
	if want := strings.TrimSuffix(target, ".wav") + ".json"; outcome.ManifestPath != want {
		t.Fatalf("expected manifest at %q, got %q", want, outcome.ManifestPath)
	}
}

func TestRunOverrunDriftsAndRecords(t *testing.T) {
	source := writeSRT(t, testSRT)
	// 4000ms clips overrun the 2000ms windows even at the speed ceiling, so
	// later entries get pushed and recorded as drifted.
	renderer := &fakeRenderer{duration: 4000 * time.Millisecond}
	pipeline, store := newTestPipeline(t, renderer, nil)

	outcome, err := pipeline.Run(context.Background(), source, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.DriftedCount == 0 {
		t.Fatalf("expected drifted entries, got %+v", outcome)
	}

	entries, err := store.Entries(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	var drifted int
	for _, entry := range entries {
		if entry.Status == ledger.EntryStatusDrifted {
			drifted++
			if entry.SpeedFactor <= 1 {
				t.Fatalf("overrun entry should be speed-corrected, got %+v", entry)
			}
		}
	}
	if drifted != outcome.DriftedCount {
		t.Fatalf("ledger drift count %d != outcome %d", drifted, outcome.DriftedCount)
	}
}
