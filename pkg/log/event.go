package log

import "time"

// Event is one capture record. Exactly one payload pointer is set,
// matching Category. Keys are CBOR integers; 9 and 13 are unused.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	RunID     string    `cbor:"2,keyasint"`
	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// Local is the adapter's logical address, Remote the device under
	// test.
	Local  uint8 `cbor:"6,keyasint"`
	Remote uint8 `cbor:"7,keyasint"`

	// Test names the case that was running, if any.
	Test string `cbor:"8,keyasint,omitempty"`

	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Verdict     *VerdictEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// enumName returns names[v], or "UNKNOWN" out of range.
func enumName[T ~uint8](v T, names []string) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "UNKNOWN"
}

// Direction is relative to the local adapter.
type Direction uint8

const (
	DirectionIn Direction = iota
	DirectionOut
)

func (d Direction) String() string { return enumName(d, []string{"IN", "OUT"}) }

// Layer is where an event originates: frames on the bus, or the test
// engine's verdicts and state.
type Layer uint8

const (
	LayerBus Layer = iota
	LayerEngine
)

func (l Layer) String() string { return enumName(l, []string{"BUS", "ENGINE"}) }

type Category uint8

const (
	CategoryFrame Category = iota
	CategoryVerdict
	CategoryState
	CategoryError
)

func (c Category) String() string {
	return enumName(c, []string{"FRAME", "VERDICT", "STATE", "ERROR"})
}

// TxStatus is the transmit outcome of an outgoing frame.
type TxStatus uint8

const (
	TxOK TxStatus = iota
	TxNack
	TxError
	TxTimeout
)

func (s TxStatus) String() string {
	return enumName(s, []string{"OK", "NACK", "ERROR", "TIMEOUT"})
}

// FrameEvent is one frame, header byte first. TxStatus is meaningful for
// outgoing frames only.
type FrameEvent struct {
	Data     []byte   `cbor:"1,keyasint"`
	TxStatus TxStatus `cbor:"2,keyasint,omitempty"`
}

// VerdictEvent is the result of one test. Expected is the verdict an
// expectation asked for, if any.
type VerdictEvent struct {
	Area     string `cbor:"1,keyasint"`
	Test     string `cbor:"2,keyasint"`
	Verdict  string `cbor:"3,keyasint"`
	Expected string `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent records a lifecycle transition of a target or of the
// run. OldState is empty for the first transition.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

type StateEntity uint8

const (
	StateEntityTarget StateEntity = iota
	StateEntityRun
)

func (s StateEntity) String() string { return enumName(s, []string{"TARGET", "RUN"}) }

// ErrorEventData is a failure at any layer. Context names the operation in
// progress.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
	Context string `cbor:"4,keyasint,omitempty"`
}
