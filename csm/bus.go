// Package csm implements the hardware protocol layer for the Covox Sound
// Master family of ISA sound cards: PSG variant detection, the AY8930 banked
// register addressing scheme, 8237 DMA channel programming with guaranteed
// restore, and interrupt vector hooking for DMA-acknowledge observation.
//
// The package talks to the card exclusively through the Bus, Memory and
// VectorTable interfaces, so it runs unchanged against the emulated machine
// in the emu package or against a real-hardware backend.
package csm

// Bus is raw I/O port access. Out is not idempotent in general: several card
// registers (IRQ acknowledge, DMA flip-flop reset) change state as a side
// effect of the access itself.
type Bus interface {
	In(port uint16) byte
	Out(port uint16, data byte)
}

// Memory is byte access to DMA-visible system memory. The 8237 addresses
// memory as page:offset, so everything the DMA test streams must be staged
// through this interface.
type Memory interface {
	ReadByte(addr uint32) byte
	WriteByte(addr uint32, data byte)
}

// Card port window offsets from the base address.
const (
	OffRegSelect = 0x0 // PSG register index (write)
	OffRegData   = 0x1 // PSG register data (read/write)
	OffPCM       = 0x2 // 8-bit DAC sample (write)
	OffIRQClear  = 0x3 // IRQ acknowledge latch (access clears it)
	OffGamepad2  = 0x4 // Gamepad 2 state (read)
	OffGamepad1  = 0x5 // Gamepad 1 state (read)
	OffPCMAlias  = 0xF // Alias of OffPCM
)

// DefaultBase is the factory-default card base address.
const DefaultBase = 0x220

// WindowSize is the number of ports decoded by the card.
const WindowSize = 16

// FloatingBus is the idle pattern read from an undriven ISA port.
const FloatingBus = 0xFF

// Window is the card's I/O port window. The base is discovered once at
// startup; offsets are fixed by the card hardware.
type Window struct {
	Base uint16
}

// Port returns the absolute port for a window offset.
func (w Window) Port(off uint16) uint16 {
	return w.Base + off
}
