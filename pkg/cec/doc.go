// Package cec provides the HDMI-CEC protocol vocabulary used by the
// compliance engine: logical addresses and address masks, opcodes, the
// closed operand enumerations (abort reasons, deck info, broadcast systems,
// record and timer status codes), the immutable Frame type and the
// per-opcode operand codec.
//
// # Frames
//
// A Frame is built once with one of the message constructors and is never
// modified after it has been handed to a transport:
//
//	f := cec.GiveDeckStatus(cec.AddrPlayback1, cec.AddrTV, cec.StatusRequestOnce)
//	// f.Reply == cec.OpDeckStatus
//
// Inbound frames are decoded with ParseFrame and inspected with the typed
// accessors (DeckStatusInfo, TimerStatusInfo, ...), which return
// ErrShortFrame when the operand payload is too short for the opcode.
//
// The codec does not judge semantic ranges: a decoded DeckInfo of 0x42 is
// returned as is and it is up to the caller to decide whether it is valid.
package cec
