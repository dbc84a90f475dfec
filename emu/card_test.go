package emu

import (
	"testing"

	"github.com/user-none/csmtest/csm"
)

func TestCard_EmptySocketFloats(t *testing.T) {
	c := NewSoundMaster(nil)
	if got := c.In(csm.OffRegData); got != csm.FloatingBus {
		t.Errorf("empty socket register read: expected 0x%02X, got 0x%02X", csm.FloatingBus, got)
	}
	// Writes must not crash either.
	c.Out(csm.OffRegSelect, 0x01)
	c.Out(csm.OffRegData, 0xFF)
}

func TestCard_UndecodedOffsetsFloat(t *testing.T) {
	c := NewSoundMaster(NewAY(AY8910Config))
	for _, off := range []uint16{0x6, 0x7, 0x8, 0xE} {
		if got := c.In(off); got != csm.FloatingBus {
			t.Errorf("offset 0x%X: expected floating 0x%02X, got 0x%02X", off, csm.FloatingBus, got)
		}
	}
}

func TestCard_RegisterWindow(t *testing.T) {
	c := NewSoundMaster(NewAY(YM2149Config))
	c.Out(csm.OffRegSelect, 0x00)
	c.Out(csm.OffRegData, 0xA5)
	if got := c.In(csm.OffRegData); got != 0xA5 {
		t.Errorf("R0 round trip: expected 0xA5, got 0x%02X", got)
	}
}

func TestCard_Gamepads(t *testing.T) {
	c := NewSoundMaster(NewAY(AY8910Config))
	if c.In(csm.OffGamepad1) != 0xFF || c.In(csm.OffGamepad2) != 0xFF {
		t.Error("gamepads should idle at 0xFF")
	}
	c.SetGamepads(0xEF, 0xFD)
	if got := c.In(csm.OffGamepad1); got != 0xEF {
		t.Errorf("gamepad 1: expected 0xEF, got 0x%02X", got)
	}
	if got := c.In(csm.OffGamepad2); got != 0xFD {
		t.Errorf("gamepad 2: expected 0xFD, got 0x%02X", got)
	}
}

func TestCard_ControlLinesFromIOB(t *testing.T) {
	c := NewSoundMaster(NewAY(AY8910Config))

	// Port B not driven as output: everything reads disabled.
	if c.DMAEnabled() {
		t.Error("DMA should be disabled while port B floats")
	}
	if c.IRQEnabled() {
		t.Error("IRQ should be disabled while port B floats")
	}

	// Drive port B, all control bits low: DMA and IRQ active, channel C on
	// DRQ duty.
	writeReg(c.ay, 0x7, 0x80)
	writeReg(c.ay, 0xF, 0x00)
	if !c.DMAEnabled() {
		t.Error("DMA should be enabled")
	}
	if !c.IRQEnabled() {
		t.Error("IRQ should be enabled")
	}
	if c.Mono() {
		t.Error("mono should be off")
	}

	writeReg(c.ay, 0xF, csm.IOBDMADis)
	if c.DMAEnabled() {
		t.Error("DMA disable bit should stop DMA")
	}
	writeReg(c.ay, 0xF, csm.IOBCOut)
	if c.DMAEnabled() {
		t.Error("channel C routed to audio should stop DMA")
	}
	writeReg(c.ay, 0xF, csm.IOBIRQDis)
	if c.IRQEnabled() {
		t.Error("IRQ disable bit should stop IRQs")
	}
	writeReg(c.ay, 0xF, csm.IOBMonoMix)
	if !c.Mono() {
		t.Error("mono bit should enable downmix")
	}
}

func TestCard_Gain(t *testing.T) {
	c := NewSoundMaster(NewAY(AY8910Config))
	if c.Gain() != 1.0 {
		t.Errorf("undriven port A should give unity gain, got %v", c.Gain())
	}
	writeReg(c.ay, 0x7, 0x40)
	writeReg(c.ay, 0xE, csm.Gain50)
	want := float32(csm.Gain50) / 0xFF
	if got := c.Gain(); got != want {
		t.Errorf("gain: expected %v, got %v", want, got)
	}
	writeReg(c.ay, 0xE, csm.Gain0)
	if got := c.Gain(); got != 0 {
		t.Errorf("zero gain: got %v", got)
	}
}

func TestCard_IRQLatch(t *testing.T) {
	c := NewSoundMaster(NewAY(AY8910Config))
	writeReg(c.ay, 0x7, 0x80)
	writeReg(c.ay, 0xF, 0x00)

	if !c.WriteDAC(0x90) {
		t.Error("first DAC write should raise the IRQ")
	}
	if !c.IRQPending() {
		t.Error("latch should be set")
	}
	if c.WriteDAC(0x70) {
		t.Error("second DAC write should be held off by the latch")
	}

	c.In(csm.OffIRQClear)
	if c.IRQPending() {
		t.Error("latch read should clear it")
	}
	if !c.WriteDAC(0x90) {
		t.Error("cleared latch should allow the next IRQ")
	}
}

func TestCard_DACWriteNoIRQWhenDisabled(t *testing.T) {
	c := NewSoundMaster(NewAY(AY8910Config))
	writeReg(c.ay, 0x7, 0x80)
	writeReg(c.ay, 0xF, csm.IOBIRQDis)
	if c.WriteDAC(0x90) {
		t.Error("DAC write with IRQs disabled should not raise")
	}
	if c.IRQPending() {
		t.Error("latch should stay clear")
	}
}

func TestCard_PCMAlias(t *testing.T) {
	c := NewSoundMaster(nil)
	c.Out(csm.OffPCM, 0x40)
	if c.dacLevel != 0x40 {
		t.Errorf("DAC level: expected 0x40, got 0x%02X", c.dacLevel)
	}
	c.Out(csm.OffPCMAlias, 0xC0)
	if c.dacLevel != 0xC0 {
		t.Errorf("DAC level via alias: expected 0xC0, got 0x%02X", c.dacLevel)
	}
}
