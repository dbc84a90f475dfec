package csm

import (
	"errors"
	"fmt"
)

// 8237 controller ports (channels 0-3, 8-bit transfers).
const (
	dmaPortCh1Addr   = 0x02
	dmaPortCh1Count  = 0x03
	dmaPortCh3Addr   = 0x06
	dmaPortCh3Count  = 0x07
	dmaPortMask      = 0x0A // single channel mask
	dmaPortMode      = 0x0B
	dmaPortFlipFlop  = 0x0C // byte flip-flop reset, write side effect
	dmaPortMultiMask = 0x0F // all-channel mask, readable on 82C37 parts
	dmaPortCh1Page   = 0x83
	dmaPortCh3Page   = 0x82
)

// Mode register bits.
const (
	DMAModeWrite  = 0x04 // device writes into memory
	DMAModeRead   = 0x08 // device reads from memory
	DMAModeAuto   = 1 << 4
	DMAModeDec    = 1 << 5
	DMAModeSingle = 0x40
	DMAModeBlock  = 0x80
)

// Single mask register: set bit, OR'd with the channel select.
const dmaMaskSet = 0x04

// The card's DRQ line can be jumpered to 8237 channel 1 or 3.
const (
	DMAChannel1 = 1
	DMAChannel3 = 3
)

// Descriptor is one DMA channel programming request. Length is the transfer
// size in bytes; the controller convention of count = length - 1 is applied
// by Program, not by the caller.
type Descriptor struct {
	Addr   uint16
	Page   byte
	Length uint16
	Mode   byte
}

// ChannelState is the raw channel configuration as read from the controller:
// current address, page, raw count (remaining - 1) and mode, plus the mask
// bit. Restore replays exactly these bytes.
type ChannelState struct {
	Addr   uint16
	Page   byte
	Count  uint16
	Mode   byte
	Masked bool
}

// Channel programming state. Program before Capture is rejected so a test
// can never clobber a channel it cannot put back.
type dmaState int

const (
	dmaIdle dmaState = iota
	dmaCaptured
	dmaProgrammed
)

var (
	ErrDMAChannel     = errors.New("dma: channel must be 1 or 3")
	ErrDMANotCaptured = errors.New("dma: channel not captured")
	ErrDMACaptured    = errors.New("dma: channel already captured")
)

// DMAController programs one 8237 channel for the PCM test and restores it
// to its pre-test configuration afterwards. Channels 1 and 3 share the
// controller with the floppy and refresh logic, so restoration replays the
// exact captured state rather than a synthesized default.
type DMAController struct {
	bus   Bus
	state [4]dmaState
	saved [4]ChannelState
}

// NewDMAController creates a controller over the system 8237 ports.
func NewDMAController(bus Bus) *DMAController {
	return &DMAController{bus: bus}
}

func channelPorts(ch uint8) (addr, count, page uint16, err error) {
	switch ch {
	case DMAChannel1:
		return dmaPortCh1Addr, dmaPortCh1Count, dmaPortCh1Page, nil
	case DMAChannel3:
		return dmaPortCh3Addr, dmaPortCh3Count, dmaPortCh3Page, nil
	default:
		return 0, 0, 0, fmt.Errorf("%w: got %d", ErrDMAChannel, ch)
	}
}

// Capture reads the channel's live mask, mode, address, page and count and
// stores them as the restore target. It must be called exactly once before
// the first Program for the channel; the returned snapshot is also useful
// for display.
func (c *DMAController) Capture(ch uint8) (ChannelState, error) {
	addrPort, countPort, pagePort, err := channelPorts(ch)
	if err != nil {
		return ChannelState{}, err
	}
	if c.state[ch] != dmaIdle {
		return ChannelState{}, fmt.Errorf("%w: channel %d", ErrDMACaptured, ch)
	}

	var st ChannelState
	st.Masked = c.bus.In(dmaPortMultiMask)&(1<<ch) != 0

	// Flip-flop reset puts the address/count reads in low-byte-first order
	// and rewinds the controller's mode read pointer.
	c.bus.Out(dmaPortFlipFlop, 0x00)
	st.Addr = uint16(c.bus.In(addrPort))
	st.Addr |= uint16(c.bus.In(addrPort)) << 8
	st.Count = uint16(c.bus.In(countPort))
	st.Count |= uint16(c.bus.In(countPort)) << 8
	st.Page = c.bus.In(pagePort)

	// Mode registers read back in channel rotation on 82C37-class parts.
	for i := uint8(0); i <= ch; i++ {
		st.Mode = c.bus.In(dmaPortMode)
	}

	c.saved[ch] = st
	c.state[ch] = dmaCaptured
	return st, nil
}

// Program configures the channel for a transfer. The write order is mandated
// by the controller protocol: masking first prevents a half-configured
// channel from being serviced mid-program, and the flip-flop reset pins the
// following address/count writes to low-byte-first.
func (c *DMAController) Program(ch uint8, d Descriptor) error {
	addrPort, countPort, pagePort, err := channelPorts(ch)
	if err != nil {
		return err
	}
	if c.state[ch] == dmaIdle {
		return fmt.Errorf("%w: program channel %d", ErrDMANotCaptured, ch)
	}

	count := d.Length - 1
	c.bus.Out(dmaPortMask, dmaMaskSet|ch)
	c.bus.Out(dmaPortFlipFlop, 0x00)
	c.bus.Out(addrPort, byte(d.Addr))
	c.bus.Out(addrPort, byte(d.Addr>>8))
	c.bus.Out(pagePort, d.Page)
	c.bus.Out(countPort, byte(count))
	c.bus.Out(countPort, byte(count>>8))
	c.bus.Out(dmaPortMode, d.Mode|ch)
	c.bus.Out(dmaPortMask, ch)

	c.state[ch] = dmaProgrammed
	return nil
}

// Restore replays the captured channel configuration and reapplies the
// captured mask state, leaving the channel masked if it was masked before
// Capture. Safe to call from any state after Capture, including after an
// aborted test; it returns the channel to Idle so a later session can
// capture again.
func (c *DMAController) Restore(ch uint8) error {
	addrPort, countPort, pagePort, err := channelPorts(ch)
	if err != nil {
		return err
	}
	if c.state[ch] == dmaIdle {
		return fmt.Errorf("%w: restore channel %d", ErrDMANotCaptured, ch)
	}
	st := c.saved[ch]

	c.bus.Out(dmaPortMask, dmaMaskSet|ch)
	c.bus.Out(dmaPortFlipFlop, 0x00)
	c.bus.Out(addrPort, byte(st.Addr))
	c.bus.Out(addrPort, byte(st.Addr>>8))
	c.bus.Out(pagePort, st.Page)
	c.bus.Out(countPort, byte(st.Count))
	c.bus.Out(countPort, byte(st.Count>>8))
	c.bus.Out(dmaPortMode, st.Mode)
	if st.Masked {
		c.bus.Out(dmaPortMask, dmaMaskSet|ch)
	} else {
		c.bus.Out(dmaPortMask, ch)
	}

	c.state[ch] = dmaIdle
	c.saved[ch] = ChannelState{}
	return nil
}

// Captured reports whether the channel has a saved restore target.
func (c *DMAController) Captured(ch uint8) bool {
	return ch < 4 && c.state[ch] != dmaIdle
}

// CurrentCount reads the channel's live count register. The value is the
// controller-convention raw count: remaining bytes minus one, wrapping to
// 0xFFFF once the transfer completes.
func (c *DMAController) CurrentCount(ch uint8) (uint16, error) {
	_, countPort, _, err := channelPorts(ch)
	if err != nil {
		return 0, err
	}
	c.bus.Out(dmaPortFlipFlop, 0x00)
	count := uint16(c.bus.In(countPort))
	count |= uint16(c.bus.In(countPort)) << 8
	return count, nil
}
