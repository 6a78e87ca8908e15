// Package transport moves CEC frames between the test engine and a bus
// adapter.
//
// The engine only depends on the Transport interface. Two families of
// implementations exist:
//   - the simulated bus in internal/testharness/mock, used by tests
//   - the network bridge: a Server exposing a local adapter over TCP and
//     a Bridge client implementing Transport against it
//
// # Bridge Protocol Stack
//
//	┌────────────────────────────────┐
//	│   CBOR Envelopes (keyasint)    │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│             TCP                │
//	└────────────────────────────────┘
//
// A session starts with a Hello exchange carrying a session UUID. Transmit
// requests are answered by a TxResult with the same sequence number;
// frames seen on the bus are pushed to every client as Received envelopes.
//
// # Keep-Alive
//
// The client pings the server periodically; after MaxMissedPongs
// unanswered pings the session is closed and pending calls fail with
// ErrClosed.
package transport
