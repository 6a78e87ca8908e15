package mock

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

func (d *Device) handleRecord() {
	d.handle(cec.OpRecordOn, handleRecordOn)
	d.handle(cec.OpRecordOff, handleRecordOff)
}

func handleRecordOn(d *Device, f cec.Frame) []cec.Frame {
	src, err := f.RecordSourceInfo()
	if err != nil || src.Validate() != nil {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	var st cec.RecordStatus
	switch src.Type {
	case cec.RecordSrcOwn:
		st = cec.RecStatusCurrentSource
	case cec.RecordSrcDigital:
		st = cec.RecStatusDigitalService
	case cec.RecordSrcAnalogue:
		st = cec.RecStatusAnalogueService
	default:
		st = cec.RecStatusExternalInput
	}
	d.recording = true
	return d.directed(f, cec.RecordStatusMsg(d.Address, f.Initiator, st))
}

func handleRecordOff(d *Device, f cec.Frame) []cec.Frame {
	st := cec.RecStatusAlreadyTerminated
	if d.recording {
		st = cec.RecStatusTerminatedOK
		d.recording = false
	}
	return d.directed(f, cec.RecordStatusMsg(d.Address, f.Initiator, st))
}

// Timers

// timerKey identifies a programmed timer by its kind and the operands that
// set it; clear messages carry the same operands.
type timerKey struct {
	kind     string
	operands string
}

func timerKind(op cec.Opcode) string {
	switch op {
	case cec.OpSetAnalogueTimer, cec.OpClearAnalogueTimer:
		return "analogue"
	case cec.OpSetDigitalTimer, cec.OpClearDigitalTimer:
		return "digital"
	default:
		return "external"
	}
}

func (d *Device) handleTimers() {
	for _, op := range []cec.Opcode{cec.OpSetAnalogueTimer, cec.OpSetDigitalTimer, cec.OpSetExtTimer} {
		d.handle(op, handleSetTimer)
	}
	for _, op := range []cec.Opcode{cec.OpClearAnalogueTimer, cec.OpClearDigitalTimer, cec.OpClearExtTimer} {
		d.handle(op, handleClearTimer)
	}
	d.handle(cec.OpSetTimerProgramTitle, ignore)
}

// SetTimerDateError changes the Timer Status error given for dates that do
// not exist. Zero restores date out of range.
func (d *Device) SetTimerDateError(e cec.ProgramError) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timerDateErr = e
}

// Timers returns the number of programmed timers.
func (d *Device) Timers() int {
	return d.timers.Size()
}

// timerSource checks the service or source part of a timer message. A
// malformed source is an error; a well-formed one the recorder cannot use
// yields a nonzero ProgramError.
func timerSource(f cec.Frame) (cec.ProgramError, error) {
	switch timerKind(f.Opcode) {
	case "analogue":
		s, err := f.TimerAnalogueService()
		if err != nil {
			return 0, err
		}
		if !s.Type.Valid() || (!s.System.Valid() && s.System != cec.BcastOther) || s.Frequency == 0 || s.Frequency == 0xffff {
			return 0, fmt.Errorf("%w: analogue service %s", errBadOperand, s)
		}
	case "digital":
		id, err := f.TimerDigitalService()
		if err != nil {
			return 0, err
		}
		if !id.System.Valid() || (id.Method == cec.ServiceByChannel && !id.ChannelFormat.Valid()) {
			return 0, fmt.Errorf("%w: digital service %s", errBadOperand, id)
		}
	default:
		src, err := f.TimerExternalSource()
		if err != nil {
			return 0, err
		}
		switch {
		case src.Specifier != cec.ExtSrcPlug && src.Specifier != cec.ExtSrcPhysAddr:
			return 0, fmt.Errorf("%w: external source specifier %d", errBadOperand, src.Specifier)
		case src.Specifier == cec.ExtSrcPlug && src.Plug == 0:
			return cec.ProgErrInvalidExtPlug, nil
		}
	}
	return 0, nil
}

func handleSetTimer(d *Device, f cec.Frame) []cec.Frame {
	spec, err := f.TimerSpecInfo()
	if err != nil {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	perr, err := timerSource(f)
	if err != nil {
		return d.abort(f, cec.AbortInvalidOperand)
	}

	st := cec.TimerStatus{Media: cec.MediaUnprotected}
	err = spec.Validate(cec.TimerYear(spec.Month, d.now()))
	switch {
	case errors.Is(err, cec.ErrTimerOperand):
		return d.abort(f, cec.AbortInvalidOperand)
	case errors.Is(err, cec.ErrTimerSequence):
		st.Error = cec.ProgErrRecSeqError
	case errors.Is(err, cec.ErrTimerDate):
		st.Error = cmp.Or(d.timerDateErr, cec.ProgErrDateOutOfRange)
	case perr != 0:
		st.Error = perr
	default:
		key := timerKey{kind: timerKind(f.Opcode), operands: string(f.Operands())}
		if _, dup := d.timers.Load(key); dup {
			st.Error = cec.ProgErrDuplicate
			break
		}
		d.timers.Range(func(_ timerKey, t cec.TimerSpec) bool {
			st.OverlapWarning = t.Overlaps(spec, d.now())
			return !st.OverlapWarning
		})
		d.timers.Store(key, spec)
		st.Programmed = true
		st.Info = cec.ProgInfoEnoughSpace
	}
	return d.directed(f, cec.TimerStatusMsg(d.Address, f.Initiator, st))
}

func handleClearTimer(d *Device, f cec.Frame) []cec.Frame {
	spec, err := f.TimerSpecInfo()
	if err != nil {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	if _, err := timerSource(f); err != nil {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	if err := spec.Validate(cec.TimerYear(spec.Month, d.now())); errors.Is(err, cec.ErrTimerOperand) {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	st := cec.TimerClearedNoMatching
	key := timerKey{kind: timerKind(f.Opcode), operands: string(f.Operands())}
	if _, ok := d.timers.LoadAndDelete(key); ok {
		st = cec.TimerCleared
	}
	return d.directed(f, cec.TimerClearedStatusMsg(d.Address, f.Initiator, st))
}
