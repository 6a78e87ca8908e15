// Package log captures CEC bus traffic and test verdicts as a structured
// event trace.
//
// It is separate from operational logging (slog): a capture is a complete
// machine-readable record of every frame the engine sent or received, the
// verdict of every test and every target state change.
//
// # Basic Usage
//
//	// Console, via slog
//	capture := log.NewSlogAdapter(slog.Default())
//
//	// Binary file
//	capture, _ := log.NewFileLogger("run.clog")
//
//	// Both
//	capture := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fileLogger)
//
// # File Format
//
// A capture file holds a Header record (magic and format version)
// followed by CBOR-encoded Events. Reopening a file appends to it without
// a second header. Reader checks the header and iterates the events,
// optionally filtered by run, test, direction, layer, category, opcode or
// remote address.
package log
