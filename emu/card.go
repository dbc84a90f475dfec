package emu

import "github.com/user-none/csmtest/csm"

// SoundMaster emulates the card's port window: the AY register pair, the
// 8-bit R2R DAC, the IRQ acknowledge latch and the two gamepad ports. Card
// control lines (DMA enable, IRQ enable, channel C routing, amplifier gain,
// mono downmix) are driven by the AY's parallel I/O ports, exactly as the
// real board wires them.
type SoundMaster struct {
	ay *AY // nil models an empty socket / dead card

	dacLevel byte
	irqLatch bool
	pad1     byte
	pad2     byte
}

// NewSoundMaster creates the card. A nil chip leaves the PSG socket empty:
// the register ports float and no DRQ clock ever runs.
func NewSoundMaster(ay *AY) *SoundMaster {
	return &SoundMaster{
		ay:       ay,
		dacLevel: csm.PCMZeroLevel,
		pad1:     0xFF,
		pad2:     0xFF,
	}
}

// In reads a window offset (0..15).
func (c *SoundMaster) In(off uint16) byte {
	switch off {
	case csm.OffRegData:
		if c.ay == nil {
			return csm.FloatingBus
		}
		return c.ay.ReadData()
	case csm.OffIRQClear:
		c.irqLatch = false
		return 0x00
	case csm.OffGamepad1:
		return c.pad1
	case csm.OffGamepad2:
		return c.pad2
	default:
		return csm.FloatingBus
	}
}

// Out writes a window offset (0..15).
func (c *SoundMaster) Out(off uint16, data byte) {
	switch off {
	case csm.OffRegSelect:
		if c.ay != nil {
			c.ay.SelectRegister(data)
		}
	case csm.OffRegData:
		if c.ay != nil {
			c.ay.WriteData(data)
		}
	case csm.OffPCM, csm.OffPCMAlias:
		c.dacLevel = data
	case csm.OffIRQClear:
		c.irqLatch = false
	}
}

// iob returns the AY I/O port B value, valid only when the mixer drives
// port B as an output. Undriven control lines float high, which the card
// logic reads as "everything disabled".
func (c *SoundMaster) iob() byte {
	if c.ay == nil || c.ay.Register(regMixer)&0x80 == 0 {
		return 0xFF
	}
	return c.ay.Register(regIOB)
}

// DMAEnabled reports whether the card reacts to DMA acknowledges: port B
// driven, DMA reaction on, and channel C routed to DRQ duty.
func (c *SoundMaster) DMAEnabled() bool {
	v := c.iob()
	return v&csm.IOBDMADis == 0 && v&csm.IOBCOut == 0
}

// IRQEnabled reports whether DMA acknowledges raise interrupts.
func (c *SoundMaster) IRQEnabled() bool {
	return c.iob()&csm.IOBIRQDis == 0
}

// Mono reports the mono downmix control line.
func (c *SoundMaster) Mono() bool {
	return c.iob()&csm.IOBMonoMix != 0
}

// Gain is the software amplifier setting from AY I/O port A, unity when
// port A is not driven.
func (c *SoundMaster) Gain() float32 {
	if c.ay == nil || c.ay.Register(regMixer)&0x40 == 0 {
		return 1.0
	}
	return float32(c.ay.Register(regIOA)) / 0xFF
}

// WriteDAC latches one PCM sample from a DMA acknowledge and reports
// whether the card should raise its IRQ line. The latch holds further
// interrupts off until the foreground acknowledges through OffIRQClear.
func (c *SoundMaster) WriteDAC(data byte) (raiseIRQ bool) {
	c.dacLevel = data
	if c.IRQEnabled() && !c.irqLatch {
		c.irqLatch = true
		return true
	}
	return false
}

// IRQPending reports the IRQ latch state.
func (c *SoundMaster) IRQPending() bool { return c.irqLatch }

// SetGamepads sets the raw active-low gamepad port values.
func (c *SoundMaster) SetGamepads(p1, p2 byte) {
	c.pad1 = p1
	c.pad2 = p2
}

// Sample mixes the synth and the DAC into one mono sample through the
// software gain stage. Channel C is dropped from the synth mix while it is
// routed to DRQ duty.
func (c *SoundMaster) Sample() float32 {
	pcm := (float32(c.dacLevel) - csm.PCMZeroLevel) / 128
	if c.ay == nil {
		return pcm
	}
	excludeC := c.ay.Register(regMixer)&0x80 != 0 && c.ay.Register(regIOB)&csm.IOBCOut == 0
	return (c.ay.Sample(excludeC) + pcm*0.5) * c.Gain()
}
