// Package channel runs line analysis off the caller's goroutine.
//
// A Channel is one background execution unit that exchanges messages with
// its owner. Nothing is shared: requests go in as values, responses come
// back as values.
//
// # Protocol
//
// Every message is JSON:
//
//	request   {"id": 7, "type": "process-line", "text": "...", "lineNumber": 3}
//	success   {"id": 7, "type": "line-result", "lineNumber": 3, "data": {...}}
//	failure   {"id": 7, "type": "error", "lineNumber": 3, "error": "..."}
//
// The id is chosen by the caller, strictly increasing, and unrelated to the
// line number; a line may be resubmitted under a new id.
//
// # Implementations
//
//   - Worker: a goroutine in the same process. A panic in the handler kills
//     the goroutine and is reported as a fatal failure.
//   - Process: a child process running `cadence worker`, framed with
//     Content-Length headers over stdin/stdout. Process exit or a broken
//     stream is a fatal failure.
//
// # Failure
//
// Failed delivers at most one error, after which the channel accepts no
// more requests. Close is an orderly shutdown and never reports a failure.
package channel
