package audio

import (
	"fmt"
	"time"
)

// Clip holds mono 16-bit PCM samples at a fixed sample rate. All pipeline
// audio passes through this representation between rendering and assembly.
type Clip struct {
	SampleRate int
	Samples    []int16
}

// NewSilence returns a clip of the given duration filled with silence.
func NewSilence(sampleRate int, duration time.Duration) *Clip {
	count := int(int64(sampleRate) * duration.Milliseconds() / 1000)
	if count < 0 {
		count = 0
	}
	return &Clip{SampleRate: sampleRate, Samples: make([]int16, count)}
}

// DurationMS returns the clip length in milliseconds, rounded down.
func (c *Clip) DurationMS() int64 {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return int64(len(c.Samples)) * 1000 / int64(c.SampleRate)
}

// Duration returns the clip length as a time.Duration.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Append adds other's samples to the end of c. The sample rates must match.
func (c *Clip) Append(other *Clip) error {
	if other == nil || len(other.Samples) == 0 {
		return nil
	}
	if c.SampleRate != other.SampleRate {
		return fmt.Errorf("sample rate mismatch: %d vs %d", c.SampleRate, other.SampleRate)
	}
	c.Samples = append(c.Samples, other.Samples...)
	return nil
}

// AppendSilence adds the given duration of silence to the end of c.
func (c *Clip) AppendSilence(duration time.Duration) {
	if duration <= 0 {
		return
	}
	count := int(int64(c.SampleRate) * duration.Milliseconds() / 1000)
	c.Samples = append(c.Samples, make([]int16, count)...)
}

func clampSample(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
