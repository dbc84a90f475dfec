// Package cli runs the interactive diagnostic: a scenario menu over the
// emulated machine, with keyboard cancellation and the card's line out
// played through the host audio device.
package cli

import (
	"log"
	"time"

	"github.com/user-none/csmtest/csm"
	"github.com/user-none/csmtest/emu"
	"github.com/user-none/csmtest/ui"
)

// stepClocks is how far the machine advances per idle tick: 5ms of AY time.
const stepClocks = csm.AYClockHz / 200

// Audio pacing thresholds in buffered bytes. Below the minimum the loop
// runs ahead; above the maximum it sleeps longer to let playback drain.
const (
	adtMinBuffer = 4410
	adtMaxBuffer = 17640
)

// Scenario durations in idle ticks (5ms each).
const (
	toneHoldTicks   = 200 // 1s per tone and noise pass
	pcmDirectTicks  = 600
	dmaTimeoutTicks = 1000
	gamepadTicks    = 12000 // 60s unless cancelled
)

// Runner owns the interactive session.
type Runner struct {
	machine *emu.Machine
	orch    *csm.Orchestrator
	kb      *ui.Keyboard
	scr     ui.Screen
	player  *ui.AudioPlayer

	irqLine uint8
	dmaCh   uint8
	gain    byte
}

// NewRunner wires a session over the machine. Audio initialization failure
// is non-fatal; the diagnostic still runs, silently.
func NewRunner(m *emu.Machine, orch *csm.Orchestrator, kb *ui.Keyboard, irqLine, dmaCh uint8, silent bool) *Runner {
	r := &Runner{
		machine: m,
		orch:    orch,
		kb:      kb,
		irqLine: irqLine,
		dmaCh:   dmaCh,
		gain:    csm.Gain100,
	}
	if !silent {
		player, err := ui.NewAudioPlayer(1.0)
		if err != nil {
			log.Printf("Warning: audio initialization failed: %v", err)
		}
		r.player = player
	}
	orch.Idle = r.idle
	return r
}

// Close releases the audio device.
func (r *Runner) Close() {
	if r.player != nil {
		r.player.Close()
		r.player = nil
	}
}

// idle is the Orchestrator's per-poll hook: advance the machine by one tick
// of emulated time, push the audio it produced, and pace against the
// playback buffer so scenarios run at roughly real time.
func (r *Runner) idle() {
	r.machine.Step(stepClocks)
	sleep := 5 * time.Millisecond

	if r.player != nil {
		r.player.QueueSamples(r.machine.TakeSamples())
		level := r.player.BufferLevel()
		if level < adtMinBuffer {
			sleep = sleep * 9 / 10
		} else if level > adtMaxBuffer {
			sleep = sleep * 11 / 10
		}
	} else {
		r.machine.TakeSamples()
		sleep = 0
	}

	if sleep > 0 {
		time.Sleep(sleep)
	}
}

// Run is the menu loop. It returns when the user quits.
func (r *Runner) Run() {
	r.scr.Clear()
	res := r.orch.Detect()
	r.scr.Printf("probe bytes %02X/%02X\n", res.MaskByte, res.ModeByte)

	for {
		r.scr.Menu(r.orch.Identity(), r.gain)
		switch r.kb.Wait() {
		case '1':
			r.scr.Printf("tone/noise\n")
			r.report(r.orch.ToneNoiseTest(r.kb.CancelCheck(), toneHoldTicks))
		case '2':
			r.scr.Printf("PCM direct\n")
			r.report(r.orch.PCMDirectTest(r.kb.CancelCheck(), pcmDirectTicks))
		case '3':
			r.dmaTest()
		case '4':
			r.gamepadTest()
		case '5':
			r.scr.AddressSweep(r.orch.Window().Base, r.orch.AddressSweep())
		case '6':
			r.dumps()
		case '7':
			res := r.orch.Detect()
			r.scr.Printf("probe bytes %02X/%02X: %s\n", res.MaskByte, res.ModeByte, res.Identity)
		case 'g':
			r.cycleGain()
		case 'q', ui.KeyEscape:
			return
		}
	}
}

func (r *Runner) report(out csm.Outcome) {
	r.scr.Printf("result: %s\n", out)
}

func (r *Runner) dmaTest() {
	r.scr.Printf("PCM via DMA, channel %d, IRQ %d\n", r.dmaCh, r.irqLine)
	res, err := r.orch.PCMDMATest(r.kb.CancelCheck(), r.dmaCh, r.irqLine, dmaTimeoutTicks)
	if err != nil {
		r.scr.Printf("error: %v\n", err)
		return
	}
	r.scr.Printf("result: %s  interrupts: %d  residue: 0x%04X\n",
		res.Outcome, res.IRQCount, res.Residue)
}

func (r *Runner) gamepadTest() {
	r.scr.Printf("gamepad test, escape to stop\n")
	out := r.orch.GamepadTest(r.kb.CancelCheck(), gamepadTicks, func(p1, p2 csm.GamepadState) {
		r.scr.Line("pad1: %s  pad2: %s", r.scr.Gamepad(p1), r.scr.Gamepad(p2))
	})
	r.scr.Printf("\nresult: %s\n", out)
}

func (r *Runner) dumps() {
	r.scr.RegisterDump("standard registers", r.orch.DumpStandard())
	r.scr.RegisterDump("overflow read-back (all registers written 0xFF)", r.orch.DumpOverflow())
	if r.orch.Identity().Banked() {
		r.scr.RegisterDump("expanded bank A", r.orch.DumpBanked(csm.BankA))
		r.scr.RegisterDump("expanded bank B", r.orch.DumpBanked(csm.BankB))
	}
}

// gainSteps are the levels the card amplifier is stepped through.
var gainSteps = []byte{csm.Gain0, csm.Gain25, csm.Gain50, csm.Gain75, csm.Gain100}

func (r *Runner) cycleGain() {
	next := 0
	for i, g := range gainSteps {
		if g == r.gain {
			next = (i + 1) % len(gainSteps)
			break
		}
	}
	r.gain = gainSteps[next]
	r.orch.SetGain(r.gain)
	r.scr.Printf("gain set to 0x%02X\n", r.gain)
}
