package csm

// AY-compatible PSG registers, selected through OffRegSelect.
const (
	RegAFreqFine   = 0x0 // Channel A period, 8-bit fine
	RegAFreqRough  = 0x1 // Channel A period, 4-bit rough
	RegBFreqFine   = 0x2 // Channel B period, 8-bit fine
	RegBFreqRough  = 0x3 // Channel B period, 4-bit rough
	RegCFreqFine   = 0x4 // Channel C period, 8-bit fine
	RegCFreqRough  = 0x5 // Channel C period, 4-bit rough
	RegNoiseFreq   = 0x6 // Noise period, 5-bit
	RegMixer       = 0x7 // Mixer and I/O port direction flags
	RegALevel      = 0x8 // Channel A level, 5-bit
	RegBLevel      = 0x9 // Channel B level, 5-bit
	RegCLevel      = 0xA // Channel C level, 5-bit
	RegEnvFine     = 0xB // Envelope period, 8-bit fine
	RegEnvRough    = 0xC // Envelope period, 8-bit rough
	RegShapeMode   = 0xD // Envelope shape; AY8930 bank/mode select in bits 7:4
	RegIOA         = 0xE // Parallel I/O port A
	RegIOB         = 0xF // Parallel I/O port B
	NumRegs        = 16
)

// RegMixer bits. Tone and noise enables are active low.
const (
	MixToneA  = 1 << 0
	MixToneB  = 1 << 1
	MixToneC  = 1 << 2
	MixNoiseA = 1 << 3
	MixNoiseB = 1 << 4
	MixNoiseC = 1 << 5
	MixIOAOut = 1 << 6 // I/O port A pins driven as outputs
	MixIOBOut = 1 << 7 // I/O port B pins driven as outputs
)

// RegIOB bits wired to the card's control logic.
const (
	IOBMonoMix = 1 << 4 // Downmix stereo to mono in the card mixer
	IOBDMADis  = 1 << 5 // Ignore DMA acknowledges
	IOBIRQDis  = 1 << 6 // Suppress IRQ requests from DMA acknowledges
	IOBCOut    = 1 << 7 // Route channel C to audio instead of DMA DRQ
)

// Bank selects one of the AY8930 expanded register banks.
type Bank uint8

const (
	BankA Bank = iota
	BankB
)

// AY8930 bank/mode selector values for RegShapeMode bits 7:4.
const (
	bankASelect = 0xA0
	bankBSelect = 0xB0
)

func (b Bank) selector() byte {
	if b == BankB {
		return bankBSelect
	}
	return bankASelect
}

func (b Bank) String() string {
	if b == BankB {
		return "B"
	}
	return "A"
}

// PSG is the register model for the card's AY-compatible synth. It owns the
// only copy of the chip's hidden bank-select state: the AY8930 exposes two
// 16-register banks through the same 4-bit index, switched by writing the
// selector to RegShapeMode, and nothing on the chip reports which bank is
// live. All bank-qualified access must go through this model.
type PSG struct {
	bus Bus
	win Window

	bank      Bank // last bank selector written to RegShapeMode
	bankKnown bool // false until a selector write, or after RegShapeMode was clobbered
}

// NewPSG creates a register model over the card window.
func NewPSG(bus Bus, win Window) *PSG {
	return &PSG{bus: bus, win: win}
}

// Write writes a standard-mode register. A write to RegShapeMode updates the
// tracked bank state, since the chip interprets its top nibble as the
// bank/mode selector.
func (p *PSG) Write(reg uint8, data byte) {
	p.bus.Out(p.win.Port(OffRegSelect), reg&0x0F)
	p.bus.Out(p.win.Port(OffRegData), data)
	if reg&0x0F == RegShapeMode {
		p.noteShapeWrite(data)
	}
}

// Read reads a standard-mode register.
func (p *PSG) Read(reg uint8) byte {
	p.bus.Out(p.win.Port(OffRegSelect), reg&0x0F)
	return p.bus.In(p.win.Port(OffRegData))
}

// WriteBanked writes a register in the given AY8930 expanded bank, switching
// banks first if the last known selection differs. The selector write is
// skipped when the bank is already live to keep timing-sensitive register
// traffic minimal.
func (p *PSG) WriteBanked(bank Bank, reg uint8, data byte) {
	p.ensureBank(bank)
	p.bus.Out(p.win.Port(OffRegSelect), reg&0x0F)
	p.bus.Out(p.win.Port(OffRegData), data)
}

// ReadBanked reads a register in the given AY8930 expanded bank. Same bank
// selection precondition as WriteBanked.
func (p *PSG) ReadBanked(bank Bank, reg uint8) byte {
	p.ensureBank(bank)
	p.bus.Out(p.win.Port(OffRegSelect), reg&0x0F)
	return p.bus.In(p.win.Port(OffRegData))
}

// ResetAll writes 0x00 to every standard register in ascending index order,
// leaving the chip quiescent: no tone, no noise, levels at zero. The zero
// write to RegShapeMode also drops the chip out of expanded mode, so the
// tracked bank selection is invalidated.
func (p *PSG) ResetAll() {
	for reg := uint8(0); reg < NumRegs; reg++ {
		p.Write(reg, 0x00)
	}
}

// FillAll writes 0xFF to every standard register in ascending index order.
// Registers clamp their unused high bits regardless of what is written, so a
// fill followed by a read-back sweep exposes the per-register masks that
// distinguish chip variants.
func (p *PSG) FillAll() {
	for reg := uint8(0); reg < NumRegs; reg++ {
		p.Write(reg, 0xFF)
	}
}

// ensureBank makes bank the live AY8930 bank, writing the selector only when
// the last known selection differs.
func (p *PSG) ensureBank(bank Bank) {
	if p.bankKnown && p.bank == bank {
		return
	}
	p.Write(RegShapeMode, bank.selector())
}

// noteShapeWrite tracks the bank implied by a RegShapeMode write. Values
// without a bank selector in the top nibble leave expanded mode, so the
// selection becomes unknown and the next banked access re-selects.
func (p *PSG) noteShapeWrite(data byte) {
	switch data & 0xF0 {
	case bankASelect:
		p.bank = BankA
		p.bankKnown = true
	case bankBSelect:
		p.bank = BankB
		p.bankKnown = true
	default:
		p.bankKnown = false
	}
}
