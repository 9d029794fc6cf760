package fitting

import (
	"context"
	"log/slog"
	"time"

	"srt-tts/internal/logging"
)

// EstimateOracle is the free synthesis service used for advisory duration
// estimates before premium rendering.
type EstimateOracle interface {
	EstimateDuration(ctx context.Context, text string) (time.Duration, error)
}

// Estimator predicts premium-render durations from the free oracle's output,
// corrected by an empirical calibration ratio. A ratio at or below zero
// disables estimation entirely.
type Estimator struct {
	oracle EstimateOracle
	ratio  float64
	logger *slog.Logger
}

// NewEstimator constructs an estimator. A nil oracle or non-positive ratio
// yields a disabled estimator.
func NewEstimator(oracle EstimateOracle, ratio float64, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Estimator{oracle: oracle, ratio: ratio, logger: logger}
}

// Enabled reports whether estimation should run at all.
func (e *Estimator) Enabled() bool {
	return e != nil && e.oracle != nil && e.ratio > 0
}

// EstimateMS returns the calibrated duration estimate in milliseconds.
func (e *Estimator) EstimateMS(ctx context.Context, text string) (int64, error) {
	raw, err := e.oracle.EstimateDuration(ctx, text)
	if err != nil {
		return 0, err
	}
	estimated := int64(float64(raw.Milliseconds()) * e.ratio)
	if estimated < 0 {
		estimated = 0
	}
	return estimated, nil
}

// MeasureFunc adapts the estimator to the shortening controller.
func (e *Estimator) MeasureFunc() MeasureFunc {
	return func(ctx context.Context, text string) (int64, error) {
		return e.EstimateMS(ctx, text)
	}
}
