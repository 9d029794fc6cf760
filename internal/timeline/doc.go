// Package timeline places fitted narration segments on the output timeline
// with margin enforcement, assembles them into one continuous track with
// silence-filled gaps, and emits the parallel text manifest.
package timeline
