// Command cec-log is a tool for viewing and analyzing CEC bus captures.
//
// Capture files are written by cec-compliance run with the --protocol-log
// flag.
//
// Usage:
//
//	cec-log <command> [flags] <file.clog>
//
// Commands:
//
//	view     View capture in human-readable format
//	export   Export capture to JSON or CSV format
//	filter   Filter capture and write to new file
//	stats    Show statistics about the capture
//
// Examples:
//
//	# View all events
//	cec-log view run.clog
//
//	# View only verdicts
//	cec-log view --category verdict run.clog
//
//	# View the frames sent by one test
//	cec-log view --direction out --test "Give Device Power Status" run.clog
//
//	# View the traffic with one device
//	cec-log view --target tv --opcode "give osd name" run.clog
//
//	# Export to CSV
//	cec-log export --format csv run.clog
//
//	# Keep only Report Power Status frames
//	cec-log filter --opcode 0x90 -o power.clog run.clog
//
//	# Show statistics
//	cec-log stats run.clog
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
