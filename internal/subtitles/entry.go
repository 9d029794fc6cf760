package subtitles

// Entry is one subtitle cue with millisecond timing. Text carries the
// working narration text, which the fitting stages may rewrite or annotate;
// OriginalText always preserves the cue as parsed.
type Entry struct {
	Index        int
	StartMS      int64
	EndMS        int64
	Text         string
	OriginalText string
}

// WindowMS returns the duration the narration for this entry must fit into.
func (e Entry) WindowMS() int64 {
	return e.EndMS - e.StartMS
}

// Context returns up to n entries before and after position i in entries.
// The slices share backing storage with entries and must not be mutated.
func Context(entries []Entry, i, n int) (before, after []Entry) {
	if n <= 0 || i < 0 || i >= len(entries) {
		return nil, nil
	}
	lo := i - n
	if lo < 0 {
		lo = 0
	}
	hi := i + 1 + n
	if hi > len(entries) {
		hi = len(entries)
	}
	return entries[lo:i], entries[i+1 : hi]
}
