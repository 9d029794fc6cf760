// Package pipeline orchestrates a narration run end to end: subtitle
// parsing, optional annotation, concurrent per-entry duration fitting, and
// the sequential placement, assembly, and manifest stages. All workers
// drain before placement starts so the timeline sees every entry.
package pipeline
