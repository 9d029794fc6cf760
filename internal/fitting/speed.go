package fitting

import (
	"fmt"

	"srt-tts/internal/audio"
)

// CorrectSpeed time-compresses a rendered clip to fit its window, preserving
// pitch. The applied factor is clamped to ceiling; a clamped clip may remain
// longer than the window, which the placer absorbs as drift. Factors at or
// below threshold leave the clip untouched.
func CorrectSpeed(clip *audio.Clip, windowMS int64, threshold, ceiling float64) (*audio.Clip, float64, error) {
	if clip == nil {
		return nil, 0, fmt.Errorf("cannot speed-correct nil clip")
	}
	if windowMS <= 0 {
		return nil, 0, fmt.Errorf("window must be positive, got %dms", windowMS)
	}

	factor := float64(clip.DurationMS()) / float64(windowMS)
	if factor <= threshold {
		return clip, 1.0, nil
	}
	if ceiling > 0 && factor > ceiling {
		factor = ceiling
	}

	corrected, err := audio.Speedup(clip, factor)
	if err != nil {
		return nil, 0, fmt.Errorf("speed correction: %w", err)
	}
	return corrected, factor, nil
}
