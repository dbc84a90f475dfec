package emu

import "github.com/user-none/csmtest/csm"

// MachineConfig selects how the emulated PC is assembled: where the card
// decodes, which IRQ line and DMA channel it is jumpered to, and which PSG
// variant (if any) sits in the socket.
type MachineConfig struct {
	Base       uint16
	IRQLine    uint8
	DMAChannel int
	SampleRate int

	// Chip is the PSG variant in the socket. Nil emulates a dead card /
	// empty socket: the register ports float.
	Chip *Config
}

// ramSize covers the first 256KB, plenty for the DMA staging buffer.
const ramSize = 0x40000

// Machine is the emulated PC the diagnostic runs against: system RAM, the
// interrupt vector table, the 8237 and 8259, and one Sound Master card. It
// implements the csm bus interfaces directly.
type Machine struct {
	Card *SoundMaster

	ram     []byte
	dma     *I8237
	pic     *I8259
	vectors [256]csm.Handler

	base       uint16
	irqLine    uint8
	dmaChannel int

	clocksPerSample int
	sampleDiv       int
	samples         []float32
}

// NewMachine assembles the machine. Both PIC lines the card can use start
// masked, matching a DOS box with no driver loaded.
func NewMachine(cfg MachineConfig) *Machine {
	m := &Machine{
		ram:        make([]byte, ramSize),
		dma:        NewI8237(),
		pic:        &I8259{},
		base:       cfg.Base,
		irqLine:    cfg.IRQLine,
		dmaChannel: cfg.DMAChannel,
	}
	if m.base == 0 {
		m.base = csm.DefaultBase
	}
	if cfg.SampleRate > 0 {
		m.clocksPerSample = csm.AYClockHz / cfg.SampleRate
	}

	var ay *AY
	if cfg.Chip != nil {
		ay = NewAY(*cfg.Chip)
	}
	m.Card = NewSoundMaster(ay)

	m.pic.imr = 1<<3 | 1<<7
	return m
}

// In implements csm.Bus.
func (m *Machine) In(port uint16) byte {
	switch {
	case port >= m.base && port < m.base+csm.WindowSize:
		return m.Card.In(port - m.base)
	case port <= 0x0F || (port >= 0x80 && port <= 0x8F):
		return m.dma.In(port)
	case port == 0x20 || port == 0x21:
		return m.pic.In(port)
	default:
		return csm.FloatingBus
	}
}

// Out implements csm.Bus.
func (m *Machine) Out(port uint16, data byte) {
	switch {
	case port >= m.base && port < m.base+csm.WindowSize:
		m.Card.Out(port-m.base, data)
	case port <= 0x0F || (port >= 0x80 && port <= 0x8F):
		m.dma.Out(port, data)
	case port == 0x20 || port == 0x21:
		m.pic.Out(port, data)
	}
}

// ReadByte implements csm.Memory.
func (m *Machine) ReadByte(addr uint32) byte {
	if addr >= ramSize {
		return csm.FloatingBus
	}
	return m.ram[addr]
}

// WriteByte implements csm.Memory.
func (m *Machine) WriteByte(addr uint32, data byte) {
	if addr < ramSize {
		m.ram[addr] = data
	}
}

// Vector implements csm.VectorTable.
func (m *Machine) Vector(n uint8) csm.Handler {
	return m.vectors[n]
}

// SetVector implements csm.VectorTable.
func (m *Machine) SetVector(n uint8, h csm.Handler) {
	m.vectors[n] = h
}

// Step advances the machine by the given number of AY input clocks. Channel
// C counter reloads become DRQ pulses: each one moves a byte through the
// card's DMA channel into the DAC, raising the card IRQ when routing allows
// it. Interrupt handlers run synchronously, as they would between host
// instructions.
func (m *Machine) Step(clocks int) {
	ay := m.Card.ay
	for i := 0; i < clocks; i++ {
		if ay != nil {
			ay.Clock()
			drq := ay.TakeCReloads()
			if m.Card.DMAEnabled() {
				for ; drq > 0; drq-- {
					m.serviceDRQ()
				}
			}
		}
		if m.clocksPerSample > 0 {
			m.sampleDiv++
			if m.sampleDiv >= m.clocksPerSample {
				m.sampleDiv = 0
				m.samples = append(m.samples, m.Card.Sample())
			}
		}
	}
}

func (m *Machine) serviceDRQ() {
	m.dma.TransferOne(m.dmaChannel, m.ReadByte, func(b byte) {
		if m.Card.WriteDAC(b) {
			if vec, ok := m.pic.Raise(m.irqLine); ok {
				if h := m.vectors[vec]; h != nil {
					h.Service()
				}
			}
		}
	})
}

// TakeSamples returns and clears the audio generated since the last call.
func (m *Machine) TakeSamples() []float32 {
	s := m.samples
	m.samples = nil
	return s
}
