package audio

import (
	"fmt"
	"math"
)

const (
	stretchFrameMS     = 40
	stretchToleranceMS = 10
)

// Speedup time-compresses a clip by the given factor using waveform
// similarity overlap-add, preserving pitch. A factor of 1.2 makes the clip
// 1.2x faster. Factors at or very near 1 return an unmodified copy.
func Speedup(clip *Clip, factor float64) (*Clip, error) {
	if clip == nil || clip.SampleRate <= 0 {
		return nil, fmt.Errorf("cannot stretch empty clip")
	}
	if factor <= 0 {
		return nil, fmt.Errorf("speed factor must be positive, got %v", factor)
	}
	if math.Abs(factor-1) < 1e-4 {
		out := &Clip{SampleRate: clip.SampleRate, Samples: append([]int16(nil), clip.Samples...)}
		return out, nil
	}

	frame := clip.SampleRate * stretchFrameMS / 1000
	if frame < 32 {
		frame = 32
	}
	if frame%2 != 0 {
		frame++
	}
	synthesisHop := frame / 2
	analysisHop := int(math.Round(float64(synthesisHop) * factor))
	if analysisHop < 1 {
		analysisHop = 1
	}
	tolerance := clip.SampleRate * stretchToleranceMS / 1000

	input := make([]float64, len(clip.Samples))
	for i, s := range clip.Samples {
		input[i] = float64(s)
	}

	if len(input) <= frame {
		out := &Clip{SampleRate: clip.SampleRate, Samples: append([]int16(nil), clip.Samples...)}
		return out, nil
	}

	window := hann(frame)
	outLen := int(math.Ceil(float64(len(input))/factor)) + frame
	acc := make([]float64, outLen)
	norm := make([]float64, outLen)

	// The previous frame's tail is what each candidate frame is matched
	// against; the first frame is taken verbatim.
	prevTail := make([]float64, synthesisHop)
	copy(prevTail, input[synthesisHop:min(2*synthesisHop, len(input))])

	outPos := 0
	for inPos := 0; inPos+frame <= len(input); inPos += analysisHop {
		start := inPos
		if outPos > 0 {
			start = bestOffset(input, inPos, frame, prevTail, tolerance)
		}

		for i := 0; i < frame; i++ {
			acc[outPos+i] += input[start+i] * window[i]
			norm[outPos+i] += window[i]
		}

		tail := start + synthesisHop
		n := copy(prevTail, input[tail:min(tail+synthesisHop, len(input))])
		for i := n; i < len(prevTail); i++ {
			prevTail[i] = 0
		}
		outPos += synthesisHop
	}

	total := outPos + synthesisHop
	if total > outLen {
		total = outLen
	}
	samples := make([]int16, total)
	for i := 0; i < total; i++ {
		v := acc[i]
		if norm[i] > 1e-9 {
			v /= norm[i]
		}
		samples[i] = clampSample(v)
	}

	return &Clip{SampleRate: clip.SampleRate, Samples: samples}, nil
}

// bestOffset searches around nominal for the frame start whose opening
// samples best correlate with the previous frame's tail.
func bestOffset(input []float64, nominal, frame int, ref []float64, tolerance int) int {
	lo := nominal - tolerance
	if lo < 0 {
		lo = 0
	}
	hi := nominal + tolerance
	if hi+frame > len(input) {
		hi = len(input) - frame
	}
	if hi < lo {
		return lo
	}

	best := nominal
	bestScore := math.Inf(-1)
	for cand := lo; cand <= hi; cand++ {
		var score float64
		for i := 0; i < len(ref); i++ {
			score += input[cand+i] * ref[i]
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
