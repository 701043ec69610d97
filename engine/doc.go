// Package engine orchestrates the full message-to-verdict pipeline: routing
// through the dialogue assembler, both scoring paths, throttled emission and
// the background lifecycle sweep. Independent channels are processed
// concurrently; all mutation of a single session is serialized by the
// assembler. Analyzer calls are the only blocking operations; a session
// force-closed mid-analysis still completes its scoring pass best-effort.
package engine
