package main

import (
	"flag"
	"log"
	"strconv"
	"strings"

	"github.com/user-none/csmtest/cli"
	"github.com/user-none/csmtest/csm"
	"github.com/user-none/csmtest/emu"
	"github.com/user-none/csmtest/ui"
)

func main() {
	baseFlag := flag.String("base", "0x220", "card base address")
	irqFlag := flag.Uint("irq", 3, "card IRQ line: 3 or 7")
	dmaFlag := flag.Uint("dma", 1, "card DMA channel: 1 or 3")
	chipFlag := flag.String("chip", "ay8930", "PSG in the socket: ay8910, ay8930, ym2149, kc89c72, avray, or none")
	mono := flag.Bool("mono", false, "request mono downmix during audio tests")
	silent := flag.Bool("silent", false, "disable host audio output")
	flag.Parse()

	base, err := strconv.ParseUint(strings.TrimPrefix(*baseFlag, "0x"), 16, 16)
	if err != nil {
		log.Fatalf("Invalid base address: %s", *baseFlag)
	}
	if *irqFlag != 3 && *irqFlag != 7 {
		log.Fatalf("Invalid IRQ line: %d (use 3 or 7)", *irqFlag)
	}
	if *dmaFlag != csm.DMAChannel1 && *dmaFlag != csm.DMAChannel3 {
		log.Fatalf("Invalid DMA channel: %d (use 1 or 3)", *dmaFlag)
	}

	var chip *emu.Config
	switch strings.ToLower(*chipFlag) {
	case "ay8910":
		chip = &emu.AY8910Config
	case "ay8930":
		chip = &emu.AY8930Config
	case "ym2149":
		chip = &emu.YM2149Config
	case "kc89c72":
		chip = &emu.KC89C72Config
	case "avray":
		chip = &emu.AVRAYConfig
	case "none":
		chip = nil
	default:
		log.Fatalf("Invalid chip: %s", *chipFlag)
	}

	machine := emu.NewMachine(emu.MachineConfig{
		Base:       uint16(base),
		IRQLine:    uint8(*irqFlag),
		DMAChannel: int(*dmaFlag),
		SampleRate: ui.SampleRate,
		Chip:       chip,
	})

	orch := csm.NewOrchestrator(machine, machine, machine, uint16(base))
	orch.Mono = *mono

	kb, err := ui.NewKeyboard()
	if err != nil {
		log.Fatalf("Failed to set up terminal: %v", err)
	}
	defer kb.Close()

	runner := cli.NewRunner(machine, orch, kb, uint8(*irqFlag), uint8(*dmaFlag), *silent)
	defer runner.Close()

	runner.Run()
}
