package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"srt-tts/internal/audio"
	"srt-tts/internal/config"
	"srt-tts/internal/fitting"
	"srt-tts/internal/ledger"
	"srt-tts/internal/logging"
	"srt-tts/internal/services"
	"srt-tts/internal/subtitles"
	"srt-tts/internal/timeline"
)

// Annotator inserts inline audio expression tags into narration text.
type Annotator interface {
	Annotate(ctx context.Context, text string, before, after []string) (string, error)
}

// Options selects per-run behavior on top of the configuration.
type Options struct {
	OutputPath string // final track path; derived from the source name when empty
	TextOnly   bool   // annotate and emit the manifest without any synthesis
	NoTags     bool   // skip the annotation pass even when configured on
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunID        string
	OutputPath   string
	ManifestPath string
	EntryCount   int
	FittedCount  int
	DriftedCount int
	SkippedCount int
	FailedCount  int
}

// Pipeline orchestrates the full narration run: parse, annotate, fit each
// entry concurrently, then place and assemble sequentially.
type Pipeline struct {
	cfg       *config.Config
	fitter    *fitting.Fitter
	annotator Annotator
	store     *ledger.Store
	logger    *slog.Logger
}

// New assembles a pipeline. The annotator and store may be nil; annotation
// and run recording are then skipped.
func New(cfg *config.Config, fitter *fitting.Fitter, annotator Annotator, store *ledger.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		fitter:    fitter,
		annotator: annotator,
		store:     store,
		logger:    logger,
	}
}

// entryOutcome is one worker's result slot.
type entryOutcome struct {
	entry   subtitles.Entry
	result  *fitting.Result
	text    string // annotated text, kept even when fitting fails
	err     error
	skipped bool
}

// wasSkipped distinguishes entries abandoned by run cancellation from genuine
// per-entry failures. Workers already holding an entry when the run is
// cancelled surface context.Canceled through the oracle call chain.
func (eo entryOutcome) wasSkipped() bool {
	return eo.skipped || errors.Is(eo.err, context.Canceled)
}

// Run executes the pipeline against one subtitle file.
func (p *Pipeline) Run(ctx context.Context, sourcePath string, opts Options) (*Outcome, error) {
	entries, err := subtitles.Parse(sourcePath)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{EntryCount: len(entries)}
	var runID string
	if p.store != nil {
		run, err := p.store.BeginRun(ctx, sourcePath, len(entries))
		if err != nil {
			return nil, fmt.Errorf("begin run: %w", err)
		}
		runID = run.ID
		outcome.RunID = runID
	}
	ctx = services.WithRunID(ctx, runID)

	p.logger.Info("starting narration run",
		logging.String("source", sourcePath),
		logging.Int("entries", len(entries)),
		logging.Int("workers", p.cfg.Pipeline.Workers),
		logging.Bool("text_only", opts.TextOnly))

	outcomes := p.processEntries(ctx, entries, opts)

	if opts.TextOnly {
		return p.finishTextOnly(ctx, sourcePath, opts, entries, outcomes, outcome)
	}
	return p.finishSynthesis(ctx, sourcePath, opts, outcomes, outcome)
}

// processEntries runs the per-entry stages over a bounded worker pool. The
// returned slice is position-aligned with entries; the barrier before
// placement is the pool drain itself.
func (p *Pipeline) processEntries(parent context.Context, entries []subtitles.Entry, opts Options) []entryOutcome {
	workers := p.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	abortAll := p.cfg.Pipeline.OnEntryFailure == "abort"

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	outcomes := make([]entryOutcome, len(entries))
	indices := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				outcomes[i] = p.processEntry(ctx, entries, i, opts)
				if outcomes[i].err != nil && abortAll {
					cancel()
				}
			}
		}()
	}

	for i := range entries {
		select {
		case indices <- i:
		case <-ctx.Done():
			outcomes[i] = entryOutcome{entry: entries[i], text: entries[i].Text, err: ctx.Err(), skipped: true}
		}
	}
	close(indices)
	wg.Wait()
	return outcomes
}

func (p *Pipeline) processEntry(ctx context.Context, entries []subtitles.Entry, i int, opts Options) entryOutcome {
	entry := entries[i]
	ctx = services.WithEntryIndex(ctx, entry.Index)
	logger := logging.WithContext(ctx, p.logger)

	before, after := contextTexts(entries, i, p.cfg.Pipeline.ContextWindow)

	text := entry.Text
	if p.annotator != nil && p.cfg.Pipeline.AudioTags && !opts.NoTags {
		tagged, err := p.annotator.Annotate(ctx, text, before, after)
		if err != nil {
			logger.Warn("annotation failed, using plain text", logging.Error(err))
		} else {
			text = tagged
		}
	}

	if opts.TextOnly {
		return entryOutcome{entry: entry, text: text}
	}

	fitEntry := entry
	fitEntry.Text = text
	result, err := p.fitter.FitEntry(services.WithStage(ctx, "fit"), fitEntry, before, after)
	if err != nil {
		logger.Error("entry failed", logging.Error(err))
		return entryOutcome{entry: entry, text: text, err: err}
	}
	return entryOutcome{entry: entry, result: result, text: result.Text}
}

func (p *Pipeline) finishSynthesis(ctx context.Context, sourcePath string, opts Options, outcomes []entryOutcome, outcome *Outcome) (*Outcome, error) {
	var firstErr error
	segments := make([]timeline.Segment, 0, len(outcomes))
	for _, eo := range outcomes {
		if eo.err != nil {
			if eo.wasSkipped() {
				outcome.SkippedCount++
			} else {
				if firstErr == nil {
					firstErr = eo.err
				}
				outcome.FailedCount++
			}
			continue
		}
		segments = append(segments, timeline.Segment{
			Index:        eo.entry.Index,
			StartMS:      eo.entry.StartMS,
			EndMS:        eo.entry.EndMS,
			Text:         eo.result.Text,
			OriginalText: eo.entry.OriginalText,
			Clip:         eo.result.Clip,
		})
	}

	if p.cfg.Pipeline.OnEntryFailure == "abort" && (outcome.FailedCount > 0 || outcome.SkippedCount > 0) {
		p.recordOutcomes(ctx, outcomes, nil)
		p.finishRun(ctx, outcome, ledger.RunStatusFailed, "")
		if firstErr == nil {
			firstErr = errors.New("run aborted")
		}
		return outcome, fmt.Errorf("aborting run after entry failure: %w", firstErr)
	}

	placements := timeline.Place(segments, p.cfg.Timeline.MarginMS, p.logger)
	track, err := timeline.Assemble(placements, p.sampleRate(placements))
	if err != nil {
		p.recordOutcomes(ctx, outcomes, placements)
		p.finishRun(ctx, outcome, ledger.RunStatusFailed, "")
		return outcome, err
	}

	outputPath, manifestPath, err := p.outputPaths(sourcePath, opts)
	if err != nil {
		p.finishRun(ctx, outcome, ledger.RunStatusFailed, "")
		return outcome, err
	}
	if err := audio.WriteWAVFile(outputPath, track); err != nil {
		p.finishRun(ctx, outcome, ledger.RunStatusFailed, "")
		return outcome, fmt.Errorf("write track: %w", err)
	}
	manifest := timeline.BuildManifest(sourcePath, placements)
	if err := manifest.WriteFile(manifestPath); err != nil {
		p.finishRun(ctx, outcome, ledger.RunStatusFailed, outputPath)
		return outcome, err
	}

	outcome.OutputPath = outputPath
	outcome.ManifestPath = manifestPath
	tallyPlacements(outcome, outcomes, placements)
	p.recordOutcomes(ctx, outcomes, placements)

	status := ledger.RunStatusCompleted
	if outcome.FailedCount > 0 || outcome.SkippedCount > 0 {
		status = ledger.RunStatusPartial
	}
	p.finishRun(ctx, outcome, status, outputPath)

	p.logger.Info("narration run complete",
		logging.String("output", outputPath),
		logging.Int("fitted", outcome.FittedCount),
		logging.Int("drifted", outcome.DriftedCount),
		logging.Int("failed", outcome.FailedCount))
	return outcome, nil
}

func (p *Pipeline) finishTextOnly(ctx context.Context, sourcePath string, opts Options, entries []subtitles.Entry, outcomes []entryOutcome, outcome *Outcome) (*Outcome, error) {
	_, manifestPath, err := p.outputPaths(sourcePath, opts)
	if err != nil {
		p.finishRun(ctx, outcome, ledger.RunStatusFailed, "")
		return outcome, err
	}

	manifest := timeline.Manifest{Source: sourcePath}
	for _, eo := range outcomes {
		manifest.Subtitles = append(manifest.Subtitles, timeline.ManifestEntry{
			Index:        eo.entry.Index,
			StartMS:      eo.entry.StartMS,
			EndMS:        eo.entry.EndMS,
			OriginalText: eo.entry.OriginalText,
			TaggedText:   eo.text,
		})
	}
	if err := manifest.WriteFile(manifestPath); err != nil {
		p.finishRun(ctx, outcome, ledger.RunStatusFailed, "")
		return outcome, err
	}
	outcome.ManifestPath = manifestPath
	outcome.FittedCount = len(entries)
	p.finishRun(ctx, outcome, ledger.RunStatusCompleted, manifestPath)
	return outcome, nil
}

func (p *Pipeline) sampleRate(placements []timeline.Placement) int {
	for _, placement := range placements {
		if placement.Clip != nil && placement.Clip.SampleRate > 0 {
			return placement.Clip.SampleRate
		}
	}
	return p.cfg.TTS.SampleRate
}

func (p *Pipeline) outputPaths(sourcePath string, opts Options) (string, string, error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return "", "", err
	}
	outputPath := opts.OutputPath
	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
		outputPath = filepath.Join(p.cfg.Paths.OutputDir, base+".wav")
	}
	manifestPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".json"
	return outputPath, manifestPath, nil
}

func tallyPlacements(outcome *Outcome, outcomes []entryOutcome, placements []timeline.Placement) {
	drifted := make(map[int]bool, len(placements))
	for _, placement := range placements {
		if placement.DriftMS() > 0 {
			drifted[placement.Index] = true
		}
	}
	for _, eo := range outcomes {
		if eo.err != nil {
			continue
		}
		if drifted[eo.entry.Index] {
			outcome.DriftedCount++
		} else {
			outcome.FittedCount++
		}
	}
}

func (p *Pipeline) recordOutcomes(ctx context.Context, outcomes []entryOutcome, placements []timeline.Placement) {
	if p.store == nil {
		return
	}
	runID, ok := services.RunIDFromContext(ctx)
	if !ok || runID == "" {
		return
	}
	drifted := make(map[int]bool, len(placements))
	for _, placement := range placements {
		if placement.DriftMS() > 0 {
			drifted[placement.Index] = true
		}
	}

	for _, eo := range outcomes {
		record := ledger.EntryRecord{
			Index:       eo.entry.Index,
			StartMS:     eo.entry.StartMS,
			EndMS:       eo.entry.EndMS,
			SpeedFactor: 1.0,
			Text:        eo.text,
		}
		switch {
		case eo.err != nil && eo.wasSkipped():
			record.Status = ledger.EntryStatusSkipped
			record.Error = eo.err.Error()
		case eo.err != nil:
			record.Status = ledger.EntryStatusFailed
			record.Error = eo.err.Error()
		default:
			record.Status = ledger.EntryStatusFitted
			if drifted[eo.entry.Index] {
				record.Status = ledger.EntryStatusDrifted
			}
			record.Strategy = strategyList(eo.result.Strategies)
			record.PreAttempts = eo.result.PreAttempts
			record.PostAttempts = eo.result.PostAttempts
			record.EstimatedMS = eo.result.EstimatedMS
			record.RenderedMS = eo.result.RenderedMS
			record.FinalMS = eo.result.FinalMS
			record.SpeedFactor = eo.result.SpeedFactor
		}
		if err := p.store.RecordEntry(ctx, runID, record); err != nil {
			p.logger.Warn("failed to record entry outcome",
				logging.Int(logging.FieldEntry, record.Index),
				logging.Error(err))
		}
	}
}

func (p *Pipeline) finishRun(ctx context.Context, outcome *Outcome, status, outputPath string) {
	if p.store == nil || outcome.RunID == "" {
		return
	}
	// failed_count covers every entry missing from the track, skips included;
	// the per-entry records keep the failed/skipped distinction.
	if err := p.store.FinishRun(ctx, outcome.RunID, status, outputPath, outcome.FailedCount+outcome.SkippedCount); err != nil {
		p.logger.Warn("failed to record run completion", logging.Error(err))
	}
}

func strategyList(strategies []fitting.Strategy) string {
	parts := make([]string, 0, len(strategies))
	for _, s := range strategies {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}

func contextTexts(entries []subtitles.Entry, i, window int) ([]string, []string) {
	beforeEntries, afterEntries := subtitles.Context(entries, i, window)
	before := make([]string, 0, len(beforeEntries))
	for _, e := range beforeEntries {
		before = append(before, e.Text)
	}
	after := make([]string, 0, len(afterEntries))
	for _, e := range afterEntries {
		after = append(after, e.Text)
	}
	return before, after
}
