package csm

import (
	"errors"
	"testing"
)

// busOp records one port access for protocol-order assertions.
type busOp struct {
	write bool
	port  uint16
	data  byte
}

// recBus is a recording bus with canned 8237 read-back bytes.
type recBus struct {
	ops []busOp

	multiMask byte
	addrBytes []byte
	cntBytes  []byte
	page      byte
	modeBytes []byte
	addrIdx   int
	cntIdx    int
	modeIdx   int
}

func (b *recBus) In(port uint16) byte {
	var v byte = FloatingBus
	switch port {
	case dmaPortMultiMask:
		v = b.multiMask
	case dmaPortCh1Addr, dmaPortCh3Addr:
		if b.addrIdx < len(b.addrBytes) {
			v = b.addrBytes[b.addrIdx]
			b.addrIdx++
		}
	case dmaPortCh1Count, dmaPortCh3Count:
		if b.cntIdx < len(b.cntBytes) {
			v = b.cntBytes[b.cntIdx]
			b.cntIdx++
		}
	case dmaPortCh1Page, dmaPortCh3Page:
		v = b.page
	case dmaPortMode:
		if b.modeIdx < len(b.modeBytes) {
			v = b.modeBytes[b.modeIdx]
			b.modeIdx++
		}
	}
	b.ops = append(b.ops, busOp{write: false, port: port, data: v})
	return v
}

func (b *recBus) Out(port uint16, data byte) {
	b.ops = append(b.ops, busOp{write: true, port: port, data: data})
}

func (b *recBus) writes() []busOp {
	var w []busOp
	for _, op := range b.ops {
		if op.write {
			w = append(w, op)
		}
	}
	return w
}

func TestDMA_ProgramBeforeCaptureRejected(t *testing.T) {
	bus := &recBus{}
	ctl := NewDMAController(bus)

	err := ctl.Program(DMAChannel1, Descriptor{Length: 16, Mode: DMAModeRead | DMAModeSingle})
	if !errors.Is(err, ErrDMANotCaptured) {
		t.Errorf("program before capture: expected ErrDMANotCaptured, got %v", err)
	}
	if len(bus.ops) != 0 {
		t.Errorf("rejected program still touched the bus: %d ops", len(bus.ops))
	}
}

func TestDMA_DoubleCaptureRejected(t *testing.T) {
	bus := &recBus{
		addrBytes: []byte{0x00, 0x10},
		cntBytes:  []byte{0xFF, 0x00},
		modeBytes: []byte{0x40, 0x59},
	}
	ctl := NewDMAController(bus)
	if _, err := ctl.Capture(DMAChannel1); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	if _, err := ctl.Capture(DMAChannel1); !errors.Is(err, ErrDMACaptured) {
		t.Errorf("second capture: expected ErrDMACaptured, got %v", err)
	}
}

func TestDMA_InvalidChannelRejected(t *testing.T) {
	ctl := NewDMAController(&recBus{})
	if _, err := ctl.Capture(2); !errors.Is(err, ErrDMAChannel) {
		t.Errorf("capture channel 2: expected ErrDMAChannel, got %v", err)
	}
	if _, err := ctl.CurrentCount(0); !errors.Is(err, ErrDMAChannel) {
		t.Errorf("count channel 0: expected ErrDMAChannel, got %v", err)
	}
}

func TestDMA_CaptureDecodesChannelState(t *testing.T) {
	bus := &recBus{
		multiMask: 1 << DMAChannel1,
		addrBytes: []byte{0x34, 0x12},
		cntBytes:  []byte{0x5F, 0x23},
		page:      0x07,
		modeBytes: []byte{0x40, 0x59},
	}
	ctl := NewDMAController(bus)

	st, err := ctl.Capture(DMAChannel1)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if st.Addr != 0x1234 {
		t.Errorf("addr: expected 0x1234, got 0x%04X", st.Addr)
	}
	if st.Count != 0x235F {
		t.Errorf("count: expected 0x235F, got 0x%04X", st.Count)
	}
	if st.Page != 0x07 {
		t.Errorf("page: expected 0x07, got 0x%02X", st.Page)
	}
	if st.Mode != 0x59 {
		t.Errorf("mode: expected second rotation byte 0x59, got 0x%02X", st.Mode)
	}
	if !st.Masked {
		t.Error("expected channel 1 reported masked")
	}
}

func TestDMA_ProgramWriteOrder(t *testing.T) {
	bus := &recBus{
		addrBytes: []byte{0x00, 0x00},
		cntBytes:  []byte{0x00, 0x00},
		modeBytes: []byte{0x00, 0x00},
	}
	ctl := NewDMAController(bus)
	if _, err := ctl.Capture(DMAChannel1); err != nil {
		t.Fatalf("capture: %v", err)
	}
	bus.ops = nil

	err := ctl.Program(DMAChannel1, Descriptor{
		Addr:   0x2000,
		Page:   0x01,
		Length: 9056,
		Mode:   DMAModeRead | DMAModeSingle,
	})
	if err != nil {
		t.Fatalf("program: %v", err)
	}

	// The controller protocol mandates: mask, flip-flop reset, address
	// low/high, page, count low/high (length-1), mode, unmask.
	want := []busOp{
		{true, dmaPortMask, dmaMaskSet | DMAChannel1},
		{true, dmaPortFlipFlop, 0x00},
		{true, dmaPortCh1Addr, 0x00},
		{true, dmaPortCh1Addr, 0x20},
		{true, dmaPortCh1Page, 0x01},
		{true, dmaPortCh1Count, 0x5F}, // 9055 = 0x235F
		{true, dmaPortCh1Count, 0x23},
		{true, dmaPortMode, DMAModeRead | DMAModeSingle | DMAChannel1},
		{true, dmaPortMask, DMAChannel1},
	}
	got := bus.writes()
	if len(got) != len(want) {
		t.Fatalf("expected %d writes, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestDMA_RestoreReplaysCapturedBytes(t *testing.T) {
	bus := &recBus{
		multiMask: 1 << DMAChannel3, // channel was masked before the test
		addrBytes: []byte{0xCD, 0xAB},
		cntBytes:  []byte{0x10, 0x00},
		page:      0x03,
		modeBytes: []byte{0x00, 0x00, 0x00, 0x5B},
	}
	ctl := NewDMAController(bus)
	if _, err := ctl.Capture(DMAChannel3); err != nil {
		t.Fatalf("capture: %v", err)
	}
	bus.ops = nil

	if err := ctl.Restore(DMAChannel3); err != nil {
		t.Fatalf("restore: %v", err)
	}

	want := []busOp{
		{true, dmaPortMask, dmaMaskSet | DMAChannel3},
		{true, dmaPortFlipFlop, 0x00},
		{true, dmaPortCh3Addr, 0xCD},
		{true, dmaPortCh3Addr, 0xAB},
		{true, dmaPortCh3Page, 0x03},
		{true, dmaPortCh3Count, 0x10},
		{true, dmaPortCh3Count, 0x00},
		{true, dmaPortMode, 0x5B},
		// Channel was masked before capture, so it stays masked.
		{true, dmaPortMask, dmaMaskSet | DMAChannel3},
	}
	got := bus.writes()
	if len(got) != len(want) {
		t.Fatalf("expected %d writes, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	if ctl.Captured(DMAChannel3) {
		t.Error("channel should return to idle after restore")
	}
	if _, err := ctl.Capture(DMAChannel3); err != nil {
		t.Errorf("re-capture after restore: %v", err)
	}
}

func TestDMA_CurrentCountReadsLowHigh(t *testing.T) {
	bus := &recBus{cntBytes: []byte{0xFF, 0xFF}}
	ctl := NewDMAController(bus)

	count, err := ctl.CurrentCount(DMAChannel1)
	if err != nil {
		t.Fatalf("current count: %v", err)
	}
	if count != 0xFFFF {
		t.Errorf("expected wrapped count 0xFFFF, got 0x%04X", count)
	}
	if len(bus.ops) == 0 || !bus.ops[0].write || bus.ops[0].port != dmaPortFlipFlop {
		t.Error("count read must reset the byte flip-flop first")
	}
}
