package mock

import (
	"github.com/cec-protocol/cec-go/pkg/cec"
)

type deckState struct {
	info  cec.DeckInfo
	media bool

	// reportTo receives a Deck Status on every change while reporting.
	reporting bool
	reportTo  cec.LogicalAddress
}

func (d *Device) handleDeck() {
	d.handle(cec.OpGiveDeckStatus, handleGiveDeckStatus)
	d.handle(cec.OpDeckControl, handleDeckControl)
	d.handle(cec.OpPlay, handlePlay)
}

// DeckInfo returns the current deck state.
func (d *Device) DeckInfo() cec.DeckInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deck.info
}

// setDeck moves the deck to info and reports the change when asked to.
func (d *Device) setDeck(info cec.DeckInfo) []cec.Frame {
	if d.deck.info == info {
		return nil
	}
	d.deck.info = info
	if !d.deck.reporting {
		return nil
	}
	return []cec.Frame{cec.DeckStatus(d.Address, d.deck.reportTo, info)}
}

// deckStatus reports the current state. A skip completes once it has been
// observed, leaving the deck playing.
func (d *Device) deckStatus(to cec.LogicalAddress) []cec.Frame {
	out := []cec.Frame{cec.DeckStatus(d.Address, to, d.deck.info)}
	if d.deck.info == cec.DeckSkipFwd || d.deck.info == cec.DeckSkipRev {
		d.deck.info = cec.DeckPlay
	}
	return out
}

func handleGiveDeckStatus(d *Device, f cec.Frame) []cec.Frame {
	b, ok := f.Operand(0)
	req := cec.StatusRequest(b)
	if !ok || !req.Valid() {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	switch req {
	case cec.StatusRequestOff:
		d.deck.reporting = false
		return nil
	case cec.StatusRequestOn:
		d.deck.reporting = true
		d.deck.reportTo = f.Initiator
	}
	return d.deckStatus(f.Initiator)
}

func handleDeckControl(d *Device, f cec.Frame) []cec.Frame {
	b, ok := f.Operand(0)
	mode := cec.DeckControlMode(b)
	if !ok || !mode.Valid() {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	switch mode {
	case cec.DeckCtlStop:
		if !d.deck.media {
			return d.setDeck(cec.DeckNoMedia)
		}
		return d.setDeck(cec.DeckStop)
	case cec.DeckCtlSkipFwd, cec.DeckCtlSkipRev:
		if !d.deck.media {
			return d.abort(f, cec.AbortIncorrectMode)
		}
		if mode == cec.DeckCtlSkipFwd {
			return d.setDeck(cec.DeckSkipFwd)
		}
		return d.setDeck(cec.DeckSkipRev)
	default:
		d.deck.media = false
		return d.setDeck(cec.DeckNoMedia)
	}
}

// handlePlay loads media when the tray is empty, like a player closing its
// tray on Play.
func handlePlay(d *Device, f cec.Frame) []cec.Frame {
	b, ok := f.Operand(0)
	if !ok {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	info, ok := cec.PlayMode(b).DeckInfo()
	if !ok {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	d.deck.media = true
	return d.setDeck(info)
}
