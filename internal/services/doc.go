// Package services defines shared utilities consumed by the pipeline stages
// and the external oracle clients.
//
// Key responsibilities:
//   - Context helpers that stamp entry indices, stage names, and run
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (external oracle vs validation vs internal invariant violation).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
