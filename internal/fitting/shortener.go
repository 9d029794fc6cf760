package fitting

import (
	"context"
	"log/slog"

	"srt-tts/internal/logging"
)

// MeasureFunc returns the spoken duration of text in milliseconds. The
// pre-render loop measures with the estimator; the post-render loop measures
// by actually rendering.
type MeasureFunc func(ctx context.Context, text string) (int64, error)

// RewriteOracle condenses text toward a target fraction of its current
// character count.
type RewriteOracle interface {
	Shorten(ctx context.Context, text string, targetRatio float64, before, after []string) (string, error)
}

// shortenState is the explicit state of one bounded shortening loop.
type shortenState int

const (
	stateMeasuring shortenState = iota
	stateShortening
	stateFitting
	stateExhausted
)

// ShortenOutcome reports how a shortening loop ended. Fit is false when the
// budget ran out with the text still over the window; that is an expected
// fallback trigger, not an error.
type ShortenOutcome struct {
	Text       string
	MeasuredMS int64
	Attempts   int
	Fit        bool
}

// Shortener drives bounded retry loops against the rewrite oracle with
// monotonically tightening target ratios.
type Shortener struct {
	rewriter   RewriteOracle
	slack      float64
	escalation float64
	logger     *slog.Logger
}

// NewShortener constructs a shortener. Slack is the safety factor applied to
// each computed target ratio; escalation multiplies the previous target so
// every retry asks for strictly shorter text.
func NewShortener(rewriter RewriteOracle, slack, escalation float64, logger *slog.Logger) *Shortener {
	if slack <= 0 || slack > 1 {
		slack = 0.95
	}
	if escalation <= 0 || escalation >= 1 {
		escalation = 0.9
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Shortener{rewriter: rewriter, slack: slack, escalation: escalation, logger: logger}
}

// Fit measures text against windowMS and rewrites it until it fits or the
// retry budget is exhausted. A measurement error aborts the loop and is
// returned to the caller; a rewrite error consumes an attempt but leaves the
// text (and its measurement) unchanged. Without a rewrite oracle the loop
// degrades to a single measurement.
func (s *Shortener) Fit(ctx context.Context, text string, windowMS int64, budget int, measure MeasureFunc, before, after []string) (ShortenOutcome, error) {
	outcome := ShortenOutcome{Text: text}

	measured, err := measure(ctx, text)
	if err != nil {
		return outcome, err
	}
	outcome.MeasuredMS = measured

	prevTarget := 1.0
	state := stateMeasuring
	for {
		switch state {
		case stateMeasuring:
			switch {
			case outcome.MeasuredMS <= windowMS:
				state = stateFitting
			case outcome.Attempts >= budget || s.rewriter == nil:
				state = stateExhausted
			default:
				state = stateShortening
			}

		case stateShortening:
			target := float64(windowMS) / float64(outcome.MeasuredMS) * s.slack
			if scaled := prevTarget * s.escalation; scaled < target {
				target = scaled
			}
			prevTarget = target
			outcome.Attempts++

			shortened, err := s.rewriter.Shorten(ctx, outcome.Text, target, before, after)
			if err != nil {
				s.logger.Warn("rewrite attempt failed, keeping current text",
					logging.Int(logging.FieldAttempt, outcome.Attempts),
					logging.Error(err))
				state = stateMeasuring
				continue
			}

			outcome.Text = shortened
			measured, err := measure(ctx, outcome.Text)
			if err != nil {
				return outcome, err
			}
			outcome.MeasuredMS = measured
			s.logger.Debug("shortened narration text",
				logging.Int(logging.FieldAttempt, outcome.Attempts),
				logging.Int64(logging.FieldWindowMS, windowMS),
				logging.Int64(logging.FieldActualMS, measured),
				logging.Float64("target_ratio", target))
			state = stateMeasuring

		case stateFitting:
			outcome.Fit = true
			return outcome, nil

		case stateExhausted:
			return outcome, nil
		}
	}
}
