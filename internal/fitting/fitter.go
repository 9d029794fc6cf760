package fitting

import (
	"context"
	"log/slog"

	"srt-tts/internal/audio"
	"srt-tts/internal/config"
	"srt-tts/internal/logging"
	"srt-tts/internal/services"
	"srt-tts/internal/subtitles"
)

// RenderOracle is the premium synthesis service producing the final audio.
type RenderOracle interface {
	Synthesize(ctx context.Context, text string) (*audio.Clip, error)
}

// Strategy names the correction applied to an entry, for reporting.
type Strategy string

const (
	StrategyNone              Strategy = "none"
	StrategyEstimationShorten Strategy = "estimation-shorten"
	StrategyPostRenderShorten Strategy = "post-render-shorten"
	StrategySpeedAdjust       Strategy = "speed-adjust"
)

// Result is the fitted narration for one entry.
type Result struct {
	Index       int
	Text        string
	Clip        *audio.Clip
	WindowMS    int64
	EstimatedMS int64 // calibrated estimate after pre-render shortening, 0 when skipped
	RenderedMS  int64 // premium render duration before speed correction
	FinalMS     int64
	PreAttempts  int
	PostAttempts int
	SpeedFactor  float64
	Strategies   []Strategy
	Fit          bool
}

// Fitter runs the per-entry duration-fitting chain: estimate, pre-render
// shortening, premium render, post-render shortening, speed correction.
type Fitter struct {
	estimator *Estimator
	renderer  RenderOracle
	shortener *Shortener
	cfg       config.Fitting
	logger    *slog.Logger
}

// NewFitter wires the fitting chain together.
func NewFitter(estimator *Estimator, renderer RenderOracle, shortener *Shortener, cfg config.Fitting, logger *slog.Logger) *Fitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fitter{
		estimator: estimator,
		renderer:  renderer,
		shortener: shortener,
		cfg:       cfg,
		logger:    logger,
	}
}

// FitEntry fits one entry's narration into its window. The before and after
// slices carry surrounding narration text so rewrites stay coherent.
// Premium render failures propagate; estimation failures only skip the
// pre-render phase.
func (f *Fitter) FitEntry(ctx context.Context, entry subtitles.Entry, before, after []string) (*Result, error) {
	window := entry.WindowMS()
	result := &Result{
		Index:       entry.Index,
		Text:        entry.Text,
		WindowMS:    window,
		SpeedFactor: 1.0,
	}
	logger := logging.WithContext(ctx, f.logger)

	text := entry.Text

	if f.estimator.Enabled() {
		outcome, err := f.shortener.Fit(ctx, text, window, f.cfg.EstimateShortenRetries,
			f.estimator.MeasureFunc(), before, after)
		switch {
		case err != nil:
			logger.Warn("estimation unavailable, rendering without pre-check", logging.Error(err))
		default:
			text = outcome.Text
			result.EstimatedMS = outcome.MeasuredMS
			result.PreAttempts = outcome.Attempts
			if outcome.Attempts > 0 {
				result.Strategies = append(result.Strategies, StrategyEstimationShorten)
			}
			if !outcome.Fit {
				logger.Info("pre-render shortening exhausted",
					logging.Int64(logging.FieldWindowMS, window),
					logging.Int64(logging.FieldActualMS, outcome.MeasuredMS),
					logging.Int(logging.FieldAttempt, outcome.Attempts))
			}
		}
	}

	var clip *audio.Clip
	renderMeasure := func(ctx context.Context, t string) (int64, error) {
		rendered, err := f.renderer.Synthesize(ctx, t)
		if err != nil {
			return 0, err
		}
		clip = rendered
		return rendered.DurationMS(), nil
	}

	outcome, err := f.shortener.Fit(ctx, text, window, f.cfg.RenderShortenRetries,
		renderMeasure, before, after)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "synthesize",
			"premium render failed", err)
	}
	result.Text = outcome.Text
	result.RenderedMS = outcome.MeasuredMS
	result.FinalMS = outcome.MeasuredMS
	result.PostAttempts = outcome.Attempts
	result.Clip = clip
	if outcome.Attempts > 0 {
		result.Strategies = append(result.Strategies, StrategyPostRenderShorten)
	}

	if !outcome.Fit {
		corrected, factor, err := CorrectSpeed(clip, window, f.cfg.SpeedThreshold, f.cfg.MaxSpeedFactor)
		if err != nil {
			return nil, services.Wrap(services.ErrFatal, "fit", "speed-correct",
				"speed correction failed", err)
		}
		if factor > 1 {
			result.Clip = corrected
			result.FinalMS = corrected.DurationMS()
			result.SpeedFactor = factor
			result.Strategies = append(result.Strategies, StrategySpeedAdjust)
			logger.Info("applied speed correction",
				logging.Int64(logging.FieldWindowMS, window),
				logging.Int64(logging.FieldActualMS, result.FinalMS),
				logging.Float64("speed_factor", factor))
		}
	}

	if len(result.Strategies) == 0 {
		result.Strategies = []Strategy{StrategyNone}
	}
	result.Fit = result.FinalMS <= window
	return result, nil
}
