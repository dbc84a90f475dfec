package emu

import "testing"

// programCh1 sets up channel 1 through the port interface the way a real
// driver would.
func programCh1(d *I8237, addr, count uint16, page, mode byte) {
	d.Out(0x0A, 0x04|1)
	d.Out(0x0C, 0x00)
	d.Out(0x02, byte(addr))
	d.Out(0x02, byte(addr>>8))
	d.Out(0x83, page)
	d.Out(0x03, byte(count))
	d.Out(0x03, byte(count>>8))
	d.Out(0x0B, mode|1)
	d.Out(0x0A, 1)
}

func TestI8237_FlipFlopSequencing(t *testing.T) {
	d := NewI8237()
	programCh1(d, 0x1234, 0x0056, 0x02, 0x48)

	d.Out(0x0C, 0x00)
	lo, hi := d.In(0x02), d.In(0x02)
	if lo != 0x34 || hi != 0x12 {
		t.Errorf("address read-back: expected 34/12, got %02X/%02X", lo, hi)
	}
	lo, hi = d.In(0x03), d.In(0x03)
	if lo != 0x56 || hi != 0x00 {
		t.Errorf("count read-back: expected 56/00, got %02X/%02X", lo, hi)
	}
	if got := d.In(0x83); got != 0x02 {
		t.Errorf("page read-back: expected 0x02, got 0x%02X", got)
	}
}

func TestI8237_ModeRotationReadback(t *testing.T) {
	d := NewI8237()
	d.Out(0x0B, 0x58|0) // ch0
	d.Out(0x0B, 0x48|1) // ch1
	d.Out(0x0B, 0x44|2) // ch2

	d.Out(0x0C, 0x00) // rewind the rotation pointer
	if got := d.In(0x0B); got != 0x58 {
		t.Errorf("first mode read should be channel 0: got 0x%02X", got)
	}
	if got := d.In(0x0B); got != 0x49 {
		t.Errorf("second mode read should be channel 1: got 0x%02X", got)
	}

	// The reset command must rewind the pointer mid-rotation too.
	d.Out(0x0C, 0x00)
	if got := d.In(0x0B); got != 0x58 {
		t.Errorf("after rewind: expected channel 0 mode, got 0x%02X", got)
	}
}

func TestI8237_MultiMaskReadback(t *testing.T) {
	d := NewI8237()
	if got := d.In(0x0F); got != 0x0F {
		t.Errorf("reset state should mask all channels: got 0x%02X", got)
	}
	d.Out(0x0A, 1) // unmask channel 1
	if got := d.In(0x0F); got != 0x0D {
		t.Errorf("expected 0x0D after unmasking channel 1, got 0x%02X", got)
	}
	d.Out(0x0F, 0x0A)
	if got := d.In(0x0F); got != 0x0A {
		t.Errorf("multimask write-back: expected 0x0A, got 0x%02X", got)
	}
}

func TestI8237_SingleTransferToTC(t *testing.T) {
	d := NewI8237()
	mem := make([]byte, 0x30000)
	for i := range mem {
		mem[i] = byte(i)
	}
	read := func(addr uint32) byte { return mem[addr] }

	// 4-byte read transfer (device reads from memory) at page 2.
	programCh1(d, 0x0010, 3, 0x02, 0x48)

	var dev []byte
	sink := func(b byte) { dev = append(dev, b) }

	for i := 0; i < 4; i++ {
		moved, tc := d.TransferOne(1, read, sink)
		if !moved {
			t.Fatalf("transfer %d did not move", i)
		}
		if tc != (i == 3) {
			t.Errorf("transfer %d: tc = %v", i, tc)
		}
	}

	want := []byte{mem[0x20010], mem[0x20011], mem[0x20012], mem[0x20013]}
	for i := range want {
		if dev[i] != want[i] {
			t.Errorf("byte %d: expected 0x%02X, got 0x%02X", i, want[i], dev[i])
		}
	}

	if !d.Masked(1) {
		t.Error("single-mode channel should self-mask at TC")
	}
	d.Out(0x0C, 0x00)
	lo, hi := d.In(0x03), d.In(0x03)
	if lo != 0xFF || hi != 0xFF {
		t.Errorf("count after TC: expected FFFF, got %02X%02X", hi, lo)
	}
	if moved, _ := d.TransferOne(1, read, sink); moved {
		t.Error("masked channel must not transfer")
	}
}

func TestI8237_AutoInitReloads(t *testing.T) {
	d := NewI8237()
	mem := make([]byte, 0x100)
	read := func(addr uint32) byte { return mem[addr&0xFF] }

	programCh1(d, 0x0000, 1, 0x00, 0x58) // auto-init, 2 bytes
	for i := 0; i < 2; i++ {
		d.TransferOne(1, read, func(byte) {})
	}
	if d.Masked(1) {
		t.Error("auto-init channel should stay unmasked at TC")
	}
	d.Out(0x0C, 0x00)
	if lo := d.In(0x03); lo != 0x01 {
		t.Errorf("auto-init should reload the count: got low byte 0x%02X", lo)
	}
	d.Out(0x0C, 0x00)
	if lo := d.In(0x02); lo != 0x00 {
		t.Errorf("auto-init should reload the address: got low byte 0x%02X", lo)
	}
}

func TestI8237_StatusTCBits(t *testing.T) {
	d := NewI8237()
	mem := make([]byte, 0x10)
	read := func(addr uint32) byte { return mem[addr&0xF] }

	programCh1(d, 0x0000, 0, 0x00, 0x48) // single byte
	d.TransferOne(1, read, func(byte) {})

	if got := d.In(0x08); got&0x02 == 0 {
		t.Errorf("status should report TC on channel 1: got 0x%02X", got)
	}
	if got := d.In(0x08); got&0x0F != 0 {
		t.Errorf("TC bits should clear on read: got 0x%02X", got)
	}
}

func TestI8237_MasterClear(t *testing.T) {
	d := NewI8237()
	programCh1(d, 0x1234, 0x10, 0x05, 0x48)
	d.Out(0x0D, 0x00)
	if !d.Masked(1) {
		t.Error("master clear should mask all channels")
	}
	d.Out(0x0C, 0x00)
	if lo := d.In(0x02); lo != 0x00 {
		t.Errorf("master clear should zero the address: got 0x%02X", lo)
	}
}
