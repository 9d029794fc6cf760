// Package fitting implements the per-entry duration-fitting chain: advisory
// estimation with the free oracle, bounded shortening loops against the
// rewrite oracle, premium rendering, and pitch-preserving speed correction
// as the last resort.
package fitting
