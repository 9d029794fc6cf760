// Package gtts provides the free estimation oracle used to predict narration
// durations before spending premium synthesis credits. The returned MP3 is
// never kept; only its duration matters.
package gtts
