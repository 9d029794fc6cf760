// Package eleven provides the premium synthesis client that renders the
// final narration audio. Responses are raw PCM so the pipeline can measure
// durations exactly and post-process without a decode step.
package eleven
