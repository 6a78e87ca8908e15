// Command cec-compliance tests remote HDMI CEC devices for protocol
// compliance.
//
// It connects to a CEC bridge (directly or found over mDNS), polls the bus
// for remote devices and runs the test catalogue against each of them.
//
// Usage:
//
//	cec-compliance run [flags]
//	cec-compliance list [flags]
//	cec-compliance bridge [flags]
//
// Examples:
//
//	# Test every device on the bus through the first bridge found
//	cec-compliance run
//
//	# Test the TV only, routing and standby areas
//	cec-compliance run --bridge 192.168.1.50:9526 --target 0 --tags routing-control,standby-resume
//
//	# Accept a known quirk and write JUnit XML for CI
//	cec-compliance run --expect "Give OSD Name=OK_NOT_SUPPORTED" --format junit -o results.xml
//
//	# Serve a simulated bus for trying the tool without hardware
//	cec-compliance bridge --listen 127.0.0.1:9526 --devices tv,playback
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
