package ui

import (
	"fmt"
	"strings"

	"github.com/user-none/csmtest/csm"
)

// Screen writes ANSI text to stdout. The terminal is in raw mode while the
// diagnostic runs, so every line break must be CR+LF; Printf rewrites plain
// newlines so callers can format naturally.
type Screen struct{}

// Printf formats to stdout with raw-mode line endings.
func (Screen) Printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	fmt.Print(strings.ReplaceAll(s, "\n", "\r\n"))
}

// Clear erases the display and homes the cursor.
func (s Screen) Clear() {
	fmt.Print("\x1b[2J\x1b[H")
}

// Line overwrites the current line, for per-poll status like gamepad state.
func (s Screen) Line(format string, args ...any) {
	fmt.Print("\r\x1b[K" + fmt.Sprintf(format, args...))
}

// RegisterDump prints a 16-register dump as two labeled hex rows.
func (s Screen) RegisterDump(title string, regs [csm.NumRegs]byte) {
	s.Printf("%s\n   ", title)
	for r := 0; r < csm.NumRegs; r++ {
		s.Printf(" R%-2d", r)
	}
	s.Printf("\n   ")
	for r := 0; r < csm.NumRegs; r++ {
		s.Printf("  %02X", regs[r])
	}
	s.Printf("\n")
}

// AddressSweep prints the raw value read at each card window offset.
func (s Screen) AddressSweep(base uint16, dump [csm.WindowSize]byte) {
	s.Printf("port sweep from base 0x%03X\n", base)
	for off := 0; off < csm.WindowSize; off++ {
		s.Printf("  0x%03X: %02X\n", base+uint16(off), dump[off])
	}
}

// Gamepad formats one decoded gamepad state.
func (Screen) Gamepad(g csm.GamepadState) string {
	if g.Idle() {
		return "idle            "
	}
	var b strings.Builder
	for _, p := range []struct {
		on   bool
		name string
	}{
		{g.Up, "up"}, {g.Down, "down"}, {g.Left, "left"},
		{g.Right, "right"}, {g.Fire, "fire"},
	} {
		if p.on {
			b.WriteString(p.name)
			b.WriteByte(' ')
		}
	}
	return fmt.Sprintf("%-16s", b.String())
}

// Menu prints the scenario menu.
func (s Screen) Menu(identity csm.Identity, gain byte) {
	s.Printf("\nSound Master II diagnostic  [chip: %s]\n", identity)
	s.Printf("  1  tone / noise test\n")
	s.Printf("  2  PCM direct output\n")
	s.Printf("  3  PCM via DMA\n")
	s.Printf("  4  gamepad test\n")
	s.Printf("  5  port address sweep\n")
	s.Printf("  6  register dumps\n")
	s.Printf("  7  re-detect chip\n")
	s.Printf("  g  gain (now 0x%02X)\n", gain)
	s.Printf("  q  quit\n")
	s.Printf("> ")
}
