package csm

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Interrupt controller ports and the two ISA lines the card can be
// jumpered to.
const (
	picPortCmd  = 0x20 // command register (EOI)
	picPortCtrl = 0x21 // interrupt mask register
	picEOI      = 0x20

	VectorIRQ3 = 0x0B
	VectorIRQ7 = 0x0F
)

// IRQLineVector maps the card's configured ISA IRQ line (3 or 7) to its
// interrupt vector number.
func IRQLineVector(line uint8) (uint8, error) {
	switch line {
	case 3:
		return VectorIRQ3, nil
	case 7:
		return VectorIRQ7, nil
	default:
		return 0, fmt.Errorf("irq: line must be 3 or 7, got %d", line)
	}
}

// Handler services one hardware interrupt. Implementations must do bounded
// work only; they run in interrupt context. Handlers are compared by
// interface identity when the guard verifies restoration, so implement this
// on a pointer type.
type Handler interface {
	Service()
}

// VectorTable is the machine's interrupt vector table.
type VectorTable interface {
	Vector(n uint8) Handler
	SetVector(n uint8, h Handler)
}

var (
	ErrVectorNesting = errors.New("irq: uninstall out of LIFO order")
	ErrVectorEmpty   = errors.New("irq: no vector installed")
)

type savedVector struct {
	vector  uint8
	handler Handler
	imr     byte
}

// VectorGuard hooks interrupt vectors for the duration of a test and
// guarantees the originals come back. Install saves the current table entry
// and the PIC mask register, installs the test handler and unmasks the line;
// Uninstall reverses all of it. Hooks nest strictly LIFO. Callers pair
// Install with a deferred Uninstall (or UninstallAll) so every exit path,
// including cancellation, releases the vector.
type VectorGuard struct {
	table VectorTable
	bus   Bus
	saved []savedVector
}

// NewVectorGuard creates a guard over the machine's vector table and the
// interrupt controller ports.
func NewVectorGuard(table VectorTable, bus Bus) *VectorGuard {
	return &VectorGuard{table: table, bus: bus}
}

// Install saves the vector's current handler and the PIC mask state, then
// installs h and unmasks the vector's IRQ line.
func (g *VectorGuard) Install(vector uint8, h Handler) {
	old := g.table.Vector(vector)
	imr := g.bus.In(picPortCtrl)
	g.saved = append(g.saved, savedVector{vector: vector, handler: old, imr: imr})

	g.table.SetVector(vector, h)
	g.bus.Out(picPortCtrl, imr&^irqLineMask(vector))
}

// Uninstall restores the most recently installed vector, which must be the
// given one: out-of-order release would re-expose an intermediate handler
// under the wrong mask state.
func (g *VectorGuard) Uninstall(vector uint8) error {
	if len(g.saved) == 0 {
		return fmt.Errorf("%w: vector 0x%02X", ErrVectorEmpty, vector)
	}
	top := g.saved[len(g.saved)-1]
	if top.vector != vector {
		return fmt.Errorf("%w: got 0x%02X, top is 0x%02X", ErrVectorNesting, vector, top.vector)
	}
	g.saved = g.saved[:len(g.saved)-1]

	g.table.SetVector(top.vector, top.handler)
	g.bus.Out(picPortCtrl, top.imr)
	return nil
}

// UninstallAll restores every hooked vector in LIFO order. Used from
// deferred teardown where partial installation may have occurred.
func (g *VectorGuard) UninstallAll() {
	for len(g.saved) > 0 {
		top := g.saved[len(g.saved)-1]
		g.saved = g.saved[:len(g.saved)-1]
		g.table.SetVector(top.vector, top.handler)
		g.bus.Out(picPortCtrl, top.imr)
	}
}

// Installed reports how many vectors the guard currently holds.
func (g *VectorGuard) Installed() int {
	return len(g.saved)
}

// irqLineMask returns the IMR bit for a vector in the 0x08-0x0F range.
func irqLineMask(vector uint8) byte {
	return 1 << (vector - 0x08)
}

// AckCounter is the test handler installed during the PCM DMA scenario. Per
// interrupt it clears the card's IRQ latch, signals end-of-interrupt to the
// controller, and bumps a counter. The counter is the only state shared
// between interrupt and foreground context; it is atomic so the foreground
// poll reads it without tearing.
type AckCounter struct {
	bus  Bus
	win  Window
	hits atomic.Uint32
}

// NewAckCounter creates the DMA-acknowledge counting handler.
func NewAckCounter(bus Bus, win Window) *AckCounter {
	return &AckCounter{bus: bus, win: win}
}

// Service acknowledges the interrupt at the card and the controller.
func (a *AckCounter) Service() {
	a.bus.In(a.win.Port(OffIRQClear))
	a.bus.Out(picPortCmd, picEOI)
	a.hits.Add(1)
}

// Hits returns the number of interrupts serviced so far.
func (a *AckCounter) Hits() uint32 {
	return a.hits.Load()
}
