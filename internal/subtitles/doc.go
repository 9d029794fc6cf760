// Package subtitles parses subtitle files into timed narration entries and
// validates their timing before the pipeline consumes them.
package subtitles
