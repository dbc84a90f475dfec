// Package emu implements an emulated Covox Sound Master machine: the card
// itself, its AY-compatible synth in several silicon variants, and the PC
// platform pieces the diagnostic pokes at (8237 DMA controller, 8259
// interrupt controller, system RAM, interrupt vector table). The machine
// implements the csm bus interfaces so the protocol layer cannot tell it
// from real hardware.
package emu

import "math"

// Config describes how one AY-compatible variant differs observably at the
// register interface: which bits each register stores, and whether the
// AY8930 expanded banks exist. Synthesis is shared; detection only depends
// on these masks.
type Config struct {
	Name string

	// RegMask is the per-register read-back mask in standard mode.
	RegMask [16]byte

	// Banked enables the AY8930 expanded register banks behind RegShapeMode
	// bits 7:4.
	Banked bool
}

// standardMasks is the AY-3-8910 datasheet register width map: 4-bit rough
// periods, 5-bit noise period, 5-bit levels (4 bits + envelope mode), 4-bit
// envelope shape.
var standardMasks = [16]byte{
	0xFF, 0x0F, 0xFF, 0x0F, 0xFF, 0x0F, 0x1F, 0xFF,
	0x1F, 0x1F, 0x1F, 0xFF, 0xFF, 0x0F, 0xFF, 0xFF,
}

// cloneMasks matches the KC89C72, which keeps five bits of the rough
// period registers.
var cloneMasks = [16]byte{
	0xFF, 0x1F, 0xFF, 0x1F, 0xFF, 0x1F, 0x1F, 0xFF,
	0x1F, 0x1F, 0x1F, 0xFF, 0xFF, 0x0F, 0xFF, 0xFF,
}

// allBits stores everything written, like the AVR firmware emulator.
var allBits = [16]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}

// Supported chip variants.
var (
	AY8910Config  = Config{Name: "AY-3-8910", RegMask: standardMasks}
	YM2149Config  = Config{Name: "YM2149", RegMask: ymMasks()}
	KC89C72Config = Config{Name: "KC89C72", RegMask: cloneMasks}
	AVRAYConfig   = Config{Name: "AVR-AY", RegMask: allBits}
	AY8930Config  = Config{Name: "AY8930", RegMask: ay8930Masks(), Banked: true}
)

// ymMasks: the YM2149 latches and reads back all bits of the period and
// level registers, but still implements a 4-bit envelope shape.
func ymMasks() [16]byte {
	m := allBits
	m[0xD] = 0x0F
	return m
}

// ay8930Masks: standard widths in compatibility mode, but the shape/mode
// register keeps its top nibble so the bank selector reads back.
func ay8930Masks() [16]byte {
	m := standardMasks
	m[0xD] = 0xFF
	return m
}

// AY8930 bank/mode selector values in the shape/mode register.
const (
	modeBankA = 0xA0
	modeBankB = 0xB0
)

const (
	regNoise     = 0x6
	regMixer     = 0x7
	regLevelBase = 0x8
	regEnvFine   = 0xB
	regEnvRough  = 0xC
	regShape     = 0xD
	regIOA       = 0xE
	regIOB       = 0xF
)

// ampTable converts a 4-bit level to linear amplitude, ~3dB per step as on
// the AY DAC. Index 0 is silence.
var ampTable [16]float32

func init() {
	for i := 1; i < 16; i++ {
		ampTable[i] = float32(math.Pow(10, -1.5*float64(15-i)/10))
	}
}

// AY emulates an AY-compatible PSG: three square tone channels, one noise
// generator, a shared envelope, two parallel I/O ports, and on the AY8930
// two expanded register banks addressed through the shape/mode register.
type AY struct {
	cfg Config

	sel      byte
	regs     [16]byte // standard registers; bank A storage in expanded mode
	bankB    [16]byte
	expanded bool
	bank     int // 0 = bank A, 1 = bank B

	toneCounter  [3]uint16
	toneOut      [3]bool
	noiseCounter uint16
	lfsr         uint32
	noiseOut     bool
	envCounter   uint32
	envStep      int
	envRising    bool
	envHold      bool
	clockDiv     int

	// Channel C counter reloads since the last TakeCReloads. The card
	// clocks its DRQ line from channel C, so the machine drains this to
	// pace DMA.
	cReloads int
}

// NewAY creates a chip of the given variant in its reset state.
func NewAY(cfg Config) *AY {
	a := &AY{cfg: cfg}
	a.Reset()
	return a
}

// Name returns the variant name.
func (a *AY) Name() string { return a.cfg.Name }

// Reset returns every register and the synthesis state to power-on.
func (a *AY) Reset() {
	a.regs = [16]byte{}
	a.bankB = [16]byte{}
	a.expanded = false
	a.bank = 0
	a.toneCounter = [3]uint16{}
	a.toneOut = [3]bool{}
	a.noiseCounter = 0
	a.lfsr = 1
	a.noiseOut = false
	a.envCounter = 0
	a.envStep = 0
	a.envHold = false
	a.clockDiv = 0
	a.cReloads = 0
}

// SelectRegister latches the register index for the next data access.
func (a *AY) SelectRegister(n byte) {
	a.sel = n & 0x0F
}

// WriteData writes the selected register. A shape/mode write on a banked
// variant with a bank selector in the top nibble enters expanded mode and
// switches banks; any other shape value leaves expanded mode.
func (a *AY) WriteData(v byte) {
	if a.sel == regShape {
		if a.cfg.Banked {
			switch v & 0xF0 {
			case modeBankA:
				a.expanded = true
				a.bank = 0
			case modeBankB:
				a.expanded = true
				a.bank = 1
			default:
				a.expanded = false
				a.bank = 0
			}
		}
		a.restartEnvelope(v)
		a.regs[regShape] = v
		return
	}
	if a.expanded && a.bank == 1 {
		a.bankB[a.sel] = v
		return
	}
	a.regs[a.sel] = v
}

// ReadData reads the selected register through the variant's read-back
// mask. Expanded-mode registers are full width.
func (a *AY) ReadData() byte {
	if a.expanded {
		if a.bank == 1 && a.sel != regShape {
			return a.bankB[a.sel]
		}
		return a.regs[a.sel]
	}
	return a.regs[a.sel] & a.cfg.RegMask[a.sel]
}

// Register returns a standard register's raw stored value, for the card's
// control logic (I/O port routing bits) and tests.
func (a *AY) Register(n byte) byte {
	return a.regs[n&0x0F]
}

func (a *AY) tonePeriod(ch int) uint16 {
	fine := uint16(a.regs[ch*2])
	rough := uint16(a.regs[ch*2+1] & 0x0F)
	p := rough<<8 | fine
	if p == 0 {
		p = 1
	}
	return p
}

func (a *AY) restartEnvelope(shape byte) {
	a.envCounter = 0
	a.envHold = false
	a.envRising = shape&0x04 != 0 // attack bit
	if a.envRising {
		a.envStep = 0
	} else {
		a.envStep = 15
	}
}

// Clock advances the chip by one input clock. Tone, noise and envelope
// counters run at clock/16 as on silicon.
func (a *AY) Clock() {
	a.clockDiv++
	if a.clockDiv < 16 {
		return
	}
	a.clockDiv = 0

	for ch := 0; ch < 3; ch++ {
		if a.toneCounter[ch] > 0 {
			a.toneCounter[ch]--
			continue
		}
		a.toneCounter[ch] = a.tonePeriod(ch)
		a.toneOut[ch] = !a.toneOut[ch]
		if ch == 2 {
			a.cReloads++
		}
	}

	if a.noiseCounter > 0 {
		a.noiseCounter--
	} else {
		p := uint16(a.regs[regNoise] & 0x1F)
		if p == 0 {
			p = 1
		}
		a.noiseCounter = p
		a.noiseOut = a.lfsr&1 != 0
		// 17-bit LFSR, taps 0 and 3.
		fb := (a.lfsr ^ (a.lfsr >> 3)) & 1
		a.lfsr = a.lfsr>>1 | fb<<16
	}

	a.clockEnvelope()
}

func (a *AY) clockEnvelope() {
	if a.envHold {
		return
	}
	period := uint32(a.regs[regEnvRough])<<8 | uint32(a.regs[regEnvFine])
	if period == 0 {
		period = 1
	}
	a.envCounter++
	if a.envCounter < period {
		return
	}
	a.envCounter = 0

	if a.envRising {
		if a.envStep < 15 {
			a.envStep++
			return
		}
	} else if a.envStep > 0 {
		a.envStep--
		return
	}

	// End of ramp: continue/alternate/hold bits decide what happens next.
	shape := a.regs[regShape] & 0x0F
	cont := shape&0x08 != 0
	alt := shape&0x02 != 0
	hold := shape&0x01 != 0
	switch {
	case !cont:
		a.envStep = 0
		a.envHold = true
	case hold:
		if alt {
			if a.envRising {
				a.envStep = 0
			} else {
				a.envStep = 15
			}
		}
		a.envHold = true
	case alt:
		a.envRising = !a.envRising
	default:
		if a.envRising {
			a.envStep = 0
		} else {
			a.envStep = 15
		}
	}
}

func (a *AY) channelAmp(ch int) float32 {
	level := a.regs[regLevelBase+ch]
	if level&0x10 != 0 {
		return ampTable[a.envStep]
	}
	return ampTable[level&0x0F]
}

// Sample mixes the current channel outputs to one mono sample. excludeC
// drops channel C from the mix, matching the card routing it to DRQ duty
// instead of the audio output.
func (a *AY) Sample(excludeC bool) float32 {
	mixer := a.regs[regMixer]
	var out float32
	for ch := 0; ch < 3; ch++ {
		if ch == 2 && excludeC {
			continue
		}
		toneOK := mixer&(1<<ch) != 0 || a.toneOut[ch]
		noiseOK := mixer&(1<<(ch+3)) != 0 || a.noiseOut
		if toneOK && noiseOK {
			out += a.channelAmp(ch)
		}
	}
	return out / 3
}

// TakeCReloads returns and clears the channel C reload count accumulated by
// Clock.
func (a *AY) TakeCReloads() int {
	n := a.cReloads
	a.cReloads = 0
	return n
}
