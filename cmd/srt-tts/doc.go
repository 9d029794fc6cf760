// Package main hosts the srt-tts CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into narration
// pipeline runs, ledger inspection, service connectivity probes, and
// configuration scaffolding. It centralizes configuration resolution and
// oracle client construction so subcommands stay declarative; the pipeline
// and fitting logic live in the internal packages.
package main
