package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/asticode/go-astisub"

	"srt-tts/internal/services"
)

// Parse reads a subtitle file and returns its cues in start order.
// Lines within a cue are joined with spaces; empty cues are dropped.
func Parse(path string) ([]Entry, error) {
	st, err := astisub.OpenFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "parse", "open subtitles",
			fmt.Sprintf("failed to open %q", path), err)
	}

	entries := make([]Entry, 0, len(st.Items))
	for i, item := range st.Items {
		text := itemText(item)
		if text == "" {
			continue
		}
		index := item.Index
		if index <= 0 {
			index = i + 1
		}
		entries = append(entries, Entry{
			Index:        index,
			StartMS:      item.StartAt.Milliseconds(),
			EndMS:        item.EndAt.Milliseconds(),
			Text:         text,
			OriginalText: text,
		})
	}

	if err := validate(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func itemText(item *astisub.Item) string {
	var sb strings.Builder
	for _, line := range item.Lines {
		for _, lineItem := range line.Items {
			piece := strings.TrimSpace(lineItem.Text)
			if piece == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteRune(' ')
			}
			sb.WriteString(piece)
		}
	}
	return sb.String()
}

func validate(entries []Entry) error {
	if len(entries) == 0 {
		return services.Wrap(services.ErrValidation, "parse", "validate subtitles",
			"subtitle file contains no usable cues", nil)
	}
	seen := make(map[int]struct{}, len(entries))
	var prevStart int64 = -1
	for _, entry := range entries {
		if entry.EndMS <= entry.StartMS {
			return services.Wrap(services.ErrValidation, "parse", "validate subtitles",
				fmt.Sprintf("cue %d ends at %s before it starts at %s",
					entry.Index, formatMS(entry.EndMS), formatMS(entry.StartMS)), nil)
		}
		if _, dup := seen[entry.Index]; dup {
			return services.Wrap(services.ErrValidation, "parse", "validate subtitles",
				fmt.Sprintf("duplicate cue index %d", entry.Index), nil)
		}
		seen[entry.Index] = struct{}{}
		if entry.StartMS < prevStart {
			return services.Wrap(services.ErrValidation, "parse", "validate subtitles",
				fmt.Sprintf("cue %d starts before the preceding cue", entry.Index), nil)
		}
		prevStart = entry.StartMS
	}
	return nil
}

func formatMS(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
