// Package sink provides result sinks for the pipeline package: FileSink writes every phase result
// to a per-run log folder and LogSink writes it as a structured log entry.
package sink
