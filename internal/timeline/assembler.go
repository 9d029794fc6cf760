package timeline

import (
	"fmt"

	"srt-tts/internal/audio"
	"srt-tts/internal/services"
)

// Assemble concatenates placed segments into one continuous track, filling
// the gaps between them with silence. Placements must be in timeline order;
// an overlap means the placer broke its invariant and is fatal.
func Assemble(placements []Placement, sampleRate int) (*audio.Clip, error) {
	if sampleRate <= 0 {
		return nil, services.Wrap(services.ErrFatal, "assemble", "concat",
			"sample rate must be positive", nil)
	}

	track := &audio.Clip{SampleRate: sampleRate}
	for _, placement := range placements {
		if placement.Clip == nil {
			return nil, services.Wrap(services.ErrFatal, "assemble", "concat",
				fmt.Sprintf("segment %d has no clip", placement.Index), nil)
		}
		startSample := placement.PlacedStartMS * int64(sampleRate) / 1000
		if startSample < int64(len(track.Samples)) {
			return nil, services.Wrap(services.ErrFatal, "assemble", "concat",
				fmt.Sprintf("segment %d placed at %dms overlaps the previous segment",
					placement.Index, placement.PlacedStartMS), nil)
		}
		if gap := startSample - int64(len(track.Samples)); gap > 0 {
			track.Samples = append(track.Samples, make([]int16, gap)...)
		}
		if err := track.Append(placement.Clip); err != nil {
			return nil, services.Wrap(services.ErrFatal, "assemble", "concat",
				fmt.Sprintf("segment %d", placement.Index), err)
		}
	}
	return track, nil
}
