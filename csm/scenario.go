package csm

// AY input clock on the Sound Master and the resulting tone counter rate
// (the chip divides its clock by 16 before the tone counters).
const (
	AYClockHz = 1790000
	AYCountHz = AYClockHz / 16
)

// Software gain steps the card's amplifier accepts through PSG I/O port A.
const (
	Gain0   = 0x00
	Gain25  = 0x44
	Gain50  = 0x88
	Gain75  = 0xCC
	Gain100 = 0xFF
)

// Outcome is the terminal state of one diagnostic scenario. None of these
// are process-fatal: the scenario has already run its teardown by the time
// an Outcome is returned.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNoDevice
	OutcomeUnknownVariant
	OutcomeDMATimeout
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNoDevice:
		return "no PSG found"
	case OutcomeUnknownVariant:
		return "unrecognized PSG variant"
	case OutcomeDMATimeout:
		return "DMA transfer timed out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown outcome"
	}
}

// CancelCheck reports whether the user asked to abort. Scenarios poll it at
// loop granularity; a true result triggers the same teardown path as normal
// completion.
type CancelCheck func() bool

// DMAResult reports the PCM-via-DMA scenario.
type DMAResult struct {
	Outcome  Outcome
	IRQCount uint32 // interrupts serviced by the hooked handler
	Residue  uint16 // raw count register at exit (0xFFFF = exhausted)
	Saved    ChannelState
}

// Orchestrator sequences the protocol-layer components into named diagnostic
// scenarios. Every scenario leaves PSG registers, the DMA channel, interrupt
// vectors and the card routing bits exactly as found, on every exit path.
type Orchestrator struct {
	bus   Bus
	mem   Memory
	win   Window
	psg   *PSG
	dma   *DMAController
	guard *VectorGuard

	// Idle is called once per polling iteration of every scenario loop. The
	// cli wiring uses it to advance the emulated machine and pump audio; a
	// real-hardware backend would sleep. Nil means no wait.
	Idle func()

	// BufferAddr is where the DMA test waveform is staged in system memory,
	// adjusted forward if the buffer would cross a 64KB DMA page.
	BufferAddr uint32

	// Mono selects the card's mono downmix during audio scenarios.
	Mono bool

	identity Identity
	detected bool
}

// NewOrchestrator wires the protocol components over one card window.
func NewOrchestrator(bus Bus, mem Memory, table VectorTable, base uint16) *Orchestrator {
	win := Window{Base: base}
	return &Orchestrator{
		bus:        bus,
		mem:        mem,
		win:        win,
		psg:        NewPSG(bus, win),
		dma:        NewDMAController(bus),
		guard:      NewVectorGuard(table, bus),
		BufferAddr: 0x8000,
	}
}

// Window returns the card window under test.
func (o *Orchestrator) Window() Window { return o.win }

// PSG returns the register model, for presentation-layer dumps.
func (o *Orchestrator) PSG() *PSG { return o.psg }

// Detect runs the identity prober and records the result for the rest of
// the session. The recorded identity selects the register map (standard vs
// banked) used by later scenarios.
func (o *Orchestrator) Detect() DetectResult {
	res := Detect(o.psg)
	o.identity = res.Identity
	o.detected = true
	return res
}

// Identity returns the session's classified chip, probing first if no
// detection has run yet.
func (o *Orchestrator) Identity() Identity {
	if !o.detected {
		o.Detect()
	}
	return o.identity
}

func (o *Orchestrator) idle() {
	if o.Idle != nil {
		o.Idle()
	}
}

// FinePeriod converts an output frequency to the AY fine period divider.
func FinePeriod(freqHz int) byte {
	if freqHz <= 0 {
		return 0xFF
	}
	d := AYCountHz / freqHz
	if d < 1 {
		d = 1
	} else if d > 255 {
		d = 255
	}
	return byte(d)
}

// toneTestFreqs are the per-channel test notes (A4, C#5, E5).
var toneTestFreqs = [3]int{440, 554, 659}

// ToneNoiseTest plays each channel in turn, tone first and then noise,
// holding each for holdTicks idle iterations. The mixer ends fully disabled
// and all registers reset regardless of how the scenario exits.
func (o *Orchestrator) ToneNoiseTest(cancel CancelCheck, holdTicks int) Outcome {
	if o.Identity() == IdentityNone {
		return OutcomeNoDevice
	}
	defer o.psg.ResetAll()

	// All tone and noise off, both I/O ports as inputs.
	const mixerQuiet = 0x3F

	for ch := uint8(0); ch < 3; ch++ {
		o.psg.Write(RegAFreqFine+ch*2, FinePeriod(toneTestFreqs[ch]))
		o.psg.Write(RegAFreqRough+ch*2, 0x00)
		o.psg.Write(RegALevel+ch, 0x0F)
		o.psg.Write(RegMixer, mixerQuiet&^(MixToneA<<ch))

		if out := o.hold(cancel, holdTicks); out != OutcomeOK {
			return out
		}

		o.psg.Write(RegMixer, mixerQuiet)
		o.psg.Write(RegALevel+ch, 0x00)
	}

	o.psg.Write(RegNoiseFreq, 0x10)
	for ch := uint8(0); ch < 3; ch++ {
		o.psg.Write(RegALevel+ch, 0x0F)
		o.psg.Write(RegMixer, mixerQuiet&^(MixNoiseA<<ch))

		if out := o.hold(cancel, holdTicks); out != OutcomeOK {
			return out
		}

		o.psg.Write(RegMixer, mixerQuiet)
		o.psg.Write(RegALevel+ch, 0x00)
	}

	return OutcomeOK
}

func (o *Orchestrator) hold(cancel CancelCheck, ticks int) Outcome {
	for i := 0; i < ticks; i++ {
		if cancel != nil && cancel() {
			return OutcomeCancelled
		}
		o.idle()
	}
	return OutcomeOK
}

// PCMDirectTest streams the short PCM sequence straight to the DAC port for
// ticks idle iterations, alternating between the two DAC port aliases.
func (o *Orchestrator) PCMDirectTest(cancel CancelCheck, ticks int) Outcome {
	if o.Identity() == IdentityNone {
		return OutcomeNoDevice
	}
	seq := PCMSequence()
	defer o.bus.Out(o.win.Port(OffPCM), PCMZeroLevel)

	for i := 0; i < ticks; i++ {
		if cancel != nil && cancel() {
			return OutcomeCancelled
		}
		off := uint16(OffPCM)
		if i%2 == 1 {
			off = OffPCMAlias
		}
		o.bus.Out(o.win.Port(off), seq[i%len(seq)])
		o.idle()
	}
	return OutcomeOK
}

// dmaPacingHz is the DRQ rate programmed on channel C for the DMA test.
const dmaPacingHz = 9000

// PCMDMATest streams the DMA test waveform through the given 8237 channel,
// observing completion through the live count register and counting
// DMA-acknowledge interrupts on the given ISA line (3 or 7).
//
// Acquisition order: stage buffer, capture DMA channel, hook vector,
// program the channel, and only then route channel C to DRQ — the routing
// bit must not flip while the 8237 channel still holds the previous owner's
// configuration. Release runs in strict reverse: routing off, unhook
// vector, restore DMA channel, restore card routing, reset PSG. All
// release steps are deferred, so cancellation and timeout take the same
// teardown path.
func (o *Orchestrator) PCMDMATest(cancel CancelCheck, ch, irqLine uint8, timeoutTicks int) (DMAResult, error) {
	res := DMAResult{}
	switch o.Identity() {
	case IdentityNone:
		res.Outcome = OutcomeNoDevice
		return res, nil
	case IdentityUnknown:
		// The DRQ clock comes from channel C; on an unclassified chip the
		// pacing registers cannot be trusted.
		res.Outcome = OutcomeUnknownVariant
		return res, nil
	}
	vector, err := IRQLineVector(irqLine)
	if err != nil {
		return res, err
	}

	wave := DMASequence()
	addr := AlignToDMAPage(o.BufferAddr, len(wave))
	for i, b := range wave {
		o.mem.WriteByte(addr+uint32(i), b)
	}

	// Deferred teardown, declared so it runs: uninstall vector, restore DMA
	// channel, restore card routing, reset PSG.
	defer o.psg.ResetAll()
	defer o.bus.Out(o.win.Port(OffPCM), PCMZeroLevel)

	saved, err := o.dma.Capture(ch)
	if err != nil {
		return res, err
	}
	res.Saved = saved
	defer o.dma.Restore(ch)

	ack := NewAckCounter(o.bus, o.win)
	o.guard.Install(vector, ack)
	defer o.guard.UninstallAll()

	// Channel C paces the DRQ line; port B must be an output for the card
	// to see the routing bits. Port B is preloaded with routing off before
	// the mixer drives it, so no DRQ fires until the channel is programmed.
	o.psg.Write(RegIOB, IOBDMADis|IOBIRQDis)
	o.psg.Write(RegMixer, 0x3F|MixIOBOut)
	o.psg.Write(RegCFreqFine, FinePeriod(dmaPacingHz))
	o.psg.Write(RegCFreqRough, 0x00)
	// Routing back off before the vector unhooks and the channel is
	// restored; this defer runs first.
	defer o.psg.Write(RegIOB, IOBDMADis|IOBIRQDis)

	page, offset := DMALocation(addr)
	err = o.dma.Program(ch, Descriptor{
		Addr:   offset,
		Page:   page,
		Length: uint16(len(wave)),
		Mode:   DMAModeRead | DMAModeSingle,
	})
	if err != nil {
		return res, err
	}

	iob := byte(0)
	if o.Mono {
		iob |= IOBMonoMix
	}
	o.psg.Write(RegIOB, iob) // DMA and IRQ enabled, channel C on DRQ duty

	res.Outcome = OutcomeDMATimeout
	for i := 0; i < timeoutTicks; i++ {
		if cancel != nil && cancel() {
			res.Outcome = OutcomeCancelled
			break
		}
		count, err := o.dma.CurrentCount(ch)
		if err != nil {
			return res, err
		}
		res.Residue = count
		if count == 0xFFFF {
			// Count wrapped past zero: every byte transferred.
			res.Outcome = OutcomeOK
			break
		}
		o.idle()
	}
	res.IRQCount = ack.Hits()
	return res, nil
}

// GamepadTest polls both gamepad ports, reporting decoded state to report
// each iteration, until cancelled or maxTicks iterations have run. Pure
// reads; nothing to restore.
func (o *Orchestrator) GamepadTest(cancel CancelCheck, maxTicks int, report func(p1, p2 GamepadState)) Outcome {
	for i := 0; i < maxTicks; i++ {
		if cancel != nil && cancel() {
			return OutcomeCancelled
		}
		p1 := DecodeGamepad(o.bus.In(o.win.Port(OffGamepad1)))
		p2 := DecodeGamepad(o.bus.In(o.win.Port(OffGamepad2)))
		if report != nil {
			report(p1, p2)
		}
		o.idle()
	}
	return OutcomeOK
}

// AddressSweep reads all sixteen window offsets for raw inspection. Reads
// only; on an idle card the lone read side effect, clearing the already-idle
// IRQ latch, does not change observable state.
func (o *Orchestrator) AddressSweep() [WindowSize]byte {
	var dump [WindowSize]byte
	for off := uint16(0); off < WindowSize; off++ {
		dump[off] = o.bus.In(o.win.Port(off))
	}
	return dump
}

// DumpStandard reads back all sixteen standard registers.
func (o *Orchestrator) DumpStandard() [NumRegs]byte {
	var dump [NumRegs]byte
	for reg := uint8(0); reg < NumRegs; reg++ {
		dump[reg] = o.psg.Read(reg)
	}
	return dump
}

// DumpBanked reads back all sixteen registers of one AY8930 expanded bank.
func (o *Orchestrator) DumpBanked(bank Bank) [NumRegs]byte {
	var dump [NumRegs]byte
	for reg := uint8(0); reg < NumRegs; reg++ {
		dump[reg] = o.psg.ReadBanked(bank, reg)
	}
	return dump
}

// DumpOverflow fills every register with 0xFF, reads the masked values back
// and resets the chip. The result shows which bits each register actually
// stores on the installed variant.
func (o *Orchestrator) DumpOverflow() [NumRegs]byte {
	defer o.psg.ResetAll()
	o.psg.FillAll()
	var dump [NumRegs]byte
	for reg := uint8(0); reg < NumRegs; reg++ {
		dump[reg] = o.psg.Read(reg)
	}
	return dump
}

// SetGain programs the card's software amplifier gain through PSG I/O port
// A. Gain is host-side card state, not chip synthesis state, so it is left
// alone by ResetAll-driven teardown only until the next scenario rewrites
// the mixer; callers reapply it per session.
func (o *Orchestrator) SetGain(level byte) {
	mixer := o.psg.Read(RegMixer)
	o.psg.Write(RegMixer, mixer|MixIOAOut)
	o.psg.Write(RegIOA, level)
}
