package csm

import "math"

const (
	// PCMZeroLevel is the DAC mid-rail: silence for the unsigned 8-bit output.
	PCMZeroLevel = 0x80

	// PCMSeqSize is the length of the short repeating sequence used for
	// direct-to-DAC output.
	PCMSeqSize = 7

	// DMASeqSize is the length of the synthesized waveform streamed in the
	// DMA test.
	DMASeqSize = 9056

	// dmaPageSize is the 8237 addressing granularity: a transfer cannot
	// cross a 64KB physical page.
	dmaPageSize = 0x10000
)

// PCMSequence returns one cycle of a PCMSeqSize-sample sine around the DAC
// zero level. Replayed back to back it produces a continuous tone through
// the direct PCM port.
func PCMSequence() []byte {
	return sineSequence(PCMSeqSize)
}

// DMASequence returns the DMASeqSize-byte test waveform for the DMA
// streaming test: a sine swept upward across the buffer so a truncated
// transfer is audible as well as visible in the count registers.
func DMASequence() []byte {
	buf := make([]byte, DMASeqSize)
	phase := 0.0
	for i := range buf {
		progress := float64(i) / DMASeqSize
		phase += 2 * math.Pi * (1 + progress*2) / PCMSeqSize
		buf[i] = byte(PCMZeroLevel + int(math.Sin(phase)*127))
	}
	return buf
}

func sineSequence(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		s := math.Sin(2 * math.Pi * float64(i) / float64(n))
		buf[i] = byte(PCMZeroLevel + int(s*127))
	}
	return buf
}

// FitsDMAPage reports whether a buffer of the given length starting at addr
// stays inside a single 64KB DMA page.
func FitsDMAPage(addr uint32, length int) bool {
	if length <= 0 {
		return true
	}
	return addr/dmaPageSize == (addr+uint32(length)-1)/dmaPageSize
}

// AlignToDMAPage returns addr if the buffer fits its page, otherwise the
// start of the next page. Callers stage the PCM buffer at the returned
// address so the 8237's page:offset addressing reaches all of it.
func AlignToDMAPage(addr uint32, length int) uint32 {
	if FitsDMAPage(addr, length) {
		return addr
	}
	return (addr/dmaPageSize + 1) * dmaPageSize
}

// DMALocation splits a physical address into the 8237 page and offset.
func DMALocation(addr uint32) (page byte, offset uint16) {
	return byte(addr >> 16), uint16(addr)
}
