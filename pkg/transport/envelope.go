package transport

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// EnvelopeType identifies a bridge protocol message.
type EnvelopeType uint8

const (
	EnvHello          EnvelopeType = 1
	EnvTransmit       EnvelopeType = 2
	EnvTxResult       EnvelopeType = 3
	EnvReceived       EnvelopeType = 4
	EnvQueryAddresses EnvelopeType = 5
	EnvAddresses      EnvelopeType = 6
	EnvPing           EnvelopeType = 7
	EnvPong           EnvelopeType = 8
	EnvClose          EnvelopeType = 9
)

// String returns the envelope type name.
func (t EnvelopeType) String() string {
	switch t {
	case EnvHello:
		return "HELLO"
	case EnvTransmit:
		return "TRANSMIT"
	case EnvTxResult:
		return "TX_RESULT"
	case EnvReceived:
		return "RECEIVED"
	case EnvQueryAddresses:
		return "QUERY_ADDRESSES"
	case EnvAddresses:
		return "ADDRESSES"
	case EnvPing:
		return "PING"
	case EnvPong:
		return "PONG"
	case EnvClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Envelope is one bridge protocol message.
type Envelope struct {
	Type EnvelopeType `cbor:"1,keyasint"`

	// Seq correlates requests with their results and pings with pongs.
	Seq uint32 `cbor:"2,keyasint,omitempty"`

	// Frame is the raw CEC frame for Transmit and Received.
	Frame []byte `cbor:"3,keyasint,omitempty"`

	// Status is the transmit outcome in TxResult.
	Status TxStatus `cbor:"4,keyasint,omitempty"`

	// Mask is the logical address mask in Addresses.
	Mask uint16 `cbor:"5,keyasint,omitempty"`

	// Session is the session UUID in Hello.
	Session string `cbor:"6,keyasint,omitempty"`

	// Error describes a failed transmit.
	Error string `cbor:"7,keyasint,omitempty"`
}

var (
	envEncMode cbor.EncMode
	envDecMode cbor.DecMode
)

func init() {
	var err error
	envEncMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create envelope CBOR encoder mode: %v", err))
	}
	envDecMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create envelope CBOR decoder mode: %v", err))
	}
}

// EncodeEnvelope encodes an envelope to CBOR.
func EncodeEnvelope(e Envelope) ([]byte, error) {
	return envEncMode.Marshal(e)
}

// DecodeEnvelope decodes a CBOR envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := envDecMode.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if e.Type == 0 {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	return e, nil
}

// writeEnvelope encodes and frames e.
func writeEnvelope(f FrameReadWriter, e Envelope) error {
	data, err := EncodeEnvelope(e)
	if err != nil {
		return err
	}
	return f.WriteFrame(data)
}

// readEnvelope reads and decodes one framed envelope.
func readEnvelope(f FrameReadWriter) (Envelope, error) {
	data, err := f.ReadFrame()
	if err != nil {
		return Envelope{}, err
	}
	return DecodeEnvelope(data)
}
