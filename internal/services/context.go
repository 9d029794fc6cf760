package services

import "context"

type contextKey string

const (
	entryIndexKey contextKey = "entry_index"
	stageKey      contextKey = "stage"
	runIDKey      contextKey = "run_id"
)

// WithEntryIndex annotates context with the subtitle entry index.
func WithEntryIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, entryIndexKey, index)
}

// EntryIndexFromContext extracts the subtitle entry index if present.
func EntryIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(entryIndexKey)
	if v == nil {
		return 0, false
	}
	if index, ok := v.(int); ok {
		return index, true
	}
	return 0, false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
