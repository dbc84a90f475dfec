package emu

import "testing"

func writeReg(a *AY, reg, val byte) {
	a.SelectRegister(reg)
	a.WriteData(val)
}

func readReg(a *AY, reg byte) byte {
	a.SelectRegister(reg)
	return a.ReadData()
}

func TestAY_ReadbackMasks(t *testing.T) {
	cases := []struct {
		cfg     Config
		roughFF byte // R1 after writing 0xFF
		shapeA0 byte // R13 after writing 0xA0
	}{
		{AY8910Config, 0x0F, 0x00},
		{YM2149Config, 0xFF, 0x00},
		{KC89C72Config, 0x1F, 0x00},
		{AVRAYConfig, 0xFF, 0xA0},
		{AY8930Config, 0x0F, 0xA0},
	}
	for _, tc := range cases {
		a := NewAY(tc.cfg)
		writeReg(a, 0x1, 0xFF)
		if got := readReg(a, 0x1); got != tc.roughFF {
			t.Errorf("%s R1: expected 0x%02X, got 0x%02X", tc.cfg.Name, tc.roughFF, got)
		}
		writeReg(a, regShape, 0xA0)
		if got := readReg(a, regShape); got != tc.shapeA0 {
			t.Errorf("%s R13: expected 0x%02X, got 0x%02X", tc.cfg.Name, tc.shapeA0, got)
		}
	}
}

func TestAY_BankedStorageIsolated(t *testing.T) {
	a := NewAY(AY8930Config)

	writeReg(a, regShape, 0xA0) // bank A
	writeReg(a, 0x8, 0x15)
	writeReg(a, regShape, 0xB0) // bank B
	writeReg(a, 0x8, 0x1F)
	if got := readReg(a, 0x8); got != 0x1F {
		t.Errorf("bank B R8: expected 0x1F, got 0x%02X", got)
	}

	writeReg(a, regShape, 0xA0)
	if got := readReg(a, 0x8); got != 0x15 {
		t.Errorf("bank A R8 after bank B write: expected 0x15, got 0x%02X", got)
	}
}

func TestAY_NonSelectorShapeExitsExpanded(t *testing.T) {
	a := NewAY(AY8930Config)
	writeReg(a, regShape, 0xB0)
	writeReg(a, 0x1, 0xFF) // bank B storage, full width
	if got := readReg(a, 0x1); got != 0xFF {
		t.Errorf("expanded R1: expected 0xFF, got 0x%02X", got)
	}

	writeReg(a, regShape, 0x08) // plain envelope shape, leaves expanded mode
	writeReg(a, 0x1, 0xFF)
	if got := readReg(a, 0x1); got != 0x0F {
		t.Errorf("compat R1 after expanded exit: expected 0x0F, got 0x%02X", got)
	}
}

func TestAY_NonBankedChipIgnoresSelector(t *testing.T) {
	a := NewAY(AY8910Config)
	writeReg(a, regShape, 0xB0)
	writeReg(a, 0x8, 0x1F)
	writeReg(a, regShape, 0xA0)
	// Still the one register file: the "bank switch" must not have hidden
	// the write.
	if got := readReg(a, 0x8); got != 0x1F {
		t.Errorf("AY8910 R8: expected 0x1F, got 0x%02X", got)
	}
}

func TestAY_ChannelCReloadCounting(t *testing.T) {
	a := NewAY(AY8910Config)
	writeReg(a, 0x4, 10) // channel C fine period
	writeReg(a, 0x5, 0)

	// 10 counts per reload, 16 clocks per count.
	a.TakeCReloads()
	for i := 0; i < 10*16*4; i++ {
		a.Clock()
	}
	got := a.TakeCReloads()
	if got < 3 || got > 5 {
		t.Errorf("expected about 4 channel C reloads, got %d", got)
	}
	if a.TakeCReloads() != 0 {
		t.Error("TakeCReloads should clear the count")
	}
}

func TestAY_ResetClearsEverything(t *testing.T) {
	a := NewAY(AY8930Config)
	writeReg(a, regShape, 0xB0)
	writeReg(a, 0x8, 0x1F)
	a.Reset()
	writeReg(a, regShape, 0xB0)
	if got := readReg(a, 0x8); got != 0x00 {
		t.Errorf("bank B R8 after reset: expected 0x00, got 0x%02X", got)
	}
	writeReg(a, regShape, 0x00)
	for r := byte(0); r < 16; r++ {
		if got := readReg(a, r); got != 0x00 {
			t.Errorf("R%d after reset: expected 0x00, got 0x%02X", r, got)
		}
	}
}
