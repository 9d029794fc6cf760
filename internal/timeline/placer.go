package timeline

import (
	"log/slog"
	"sort"

	"srt-tts/internal/audio"
	"srt-tts/internal/logging"
)

// Segment is a fitted entry waiting for placement: the final clip plus the
// entry's original timing and text.
type Segment struct {
	Index        int
	StartMS      int64
	EndMS        int64
	Text         string
	OriginalText string
	Clip         *audio.Clip
}

// Placement is a segment positioned on the output timeline.
type Placement struct {
	Segment
	PlacedStartMS int64
	PlacedEndMS   int64
}

// DriftMS reports how far the segment was pushed past its natural start.
func (p Placement) DriftMS() int64 {
	return p.PlacedStartMS - p.StartMS
}

// Place positions segments on the output timeline in index order. Each
// segment starts at its natural timestamp unless the previous placement plus
// the margin pushes it later; overruns shift later entries rather than
// dropping anything, so total drift can accumulate.
func Place(segments []Segment, marginMS int64, logger *slog.Logger) []Placement {
	if logger == nil {
		logger = logging.NewNop()
	}

	ordered := append([]Segment(nil), segments...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	placements := make([]Placement, 0, len(ordered))
	var prevEnd int64
	for i, segment := range ordered {
		start := segment.StartMS
		if i > 0 {
			if pushed := prevEnd + marginMS; pushed > start {
				start = pushed
			}
		}
		end := start + segment.Clip.DurationMS()

		placement := Placement{
			Segment:       segment,
			PlacedStartMS: start,
			PlacedEndMS:   end,
		}
		if drift := placement.DriftMS(); drift > 0 {
			logger.Warn("segment pushed past its natural start",
				logging.Int(logging.FieldEntry, segment.Index),
				logging.Int64("drift_ms", drift),
				logging.Alert("timeline drift"))
		}
		placements = append(placements, placement)
		prevEnd = end
	}
	return placements
}
