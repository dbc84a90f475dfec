package emu

// I8259 is a minimal master interrupt controller: an interrupt mask
// register, an in-service flag, and EOI. Enough for the diagnostic, which
// only masks/unmasks one line and acknowledges with a non-specific EOI.
type I8259 struct {
	imr       byte
	inService bool
}

// In reads a controller port.
func (p *I8259) In(port uint16) byte {
	if port == 0x21 {
		return p.imr
	}
	return 0x00
}

// Out writes a controller port.
func (p *I8259) Out(port uint16, data byte) {
	switch port {
	case 0x20:
		if data == 0x20 { // non-specific EOI
			p.inService = false
		}
	case 0x21:
		p.imr = data
	}
}

// Raise asserts an IRQ line. Returns the vector to dispatch, or ok=false
// when the line is masked or another interrupt is still in service.
func (p *I8259) Raise(line uint8) (vector uint8, ok bool) {
	if p.imr&(1<<line) != 0 || p.inService {
		return 0, false
	}
	p.inService = true
	return 0x08 + line, true
}
