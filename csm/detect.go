package csm

// Identity is the classified PSG variant behind the card window.
type Identity int

const (
	IdentityNone    Identity = iota // no chip responds, bus floats
	IdentityAY8910                  // AY-3-8910
	IdentityAY8930                  // AY8930 with expanded banked registers
	IdentityYM2149                  // YM2149F
	IdentityKC89C72                 // KC89C72 clone
	IdentityAVRAY                   // ATmega-based AY emulator
	IdentityUnknown                 // responds, but matches no known signature
)

func (id Identity) String() string {
	switch id {
	case IdentityNone:
		return "not found"
	case IdentityAY8910:
		return "AY-3-8910"
	case IdentityAY8930:
		return "AY8930"
	case IdentityYM2149:
		return "YM2149"
	case IdentityKC89C72:
		return "KC89C72"
	case IdentityAVRAY:
		return "AVR AY emulator"
	default:
		return "unknown AY-compatible"
	}
}

// Banked reports whether the identity supports the AY8930 expanded banks.
func (id Identity) Banked() bool {
	return id == IdentityAY8930
}

// DetectResult is the prober outcome plus the raw probe bytes it was decided
// on, for diagnostic display.
type DetectResult struct {
	Identity Identity
	MaskByte byte // RegAFreqRough read-back after writing 0xFF
	ModeByte byte // RegShapeMode read-back after writing the bank A selector
}

// signature pairs an identity with the probe bytes that chip produces.
// Empirical constants from the supported chips; anything not in this table is
// reported as unknown rather than guessed.
type signature struct {
	id       Identity
	maskByte byte
	modeByte byte
}

// signatures is evaluated in priority order. The AY8930 row must come first:
// expanded-mode behavior is a strict superset of standard behavior and would
// otherwise be misclassified as a standard chip. The AVR emulator row comes
// next since its trait is a non-floating, non-chip-standard response.
var signatures = []signature{
	{IdentityAY8930, 0x0F, 0xA0},  // bank selector latched and read back in full
	{IdentityAVRAY, 0xFF, 0xA0},   // stores every bit written, still answers
	{IdentityAY8910, 0x0F, 0x00},  // 4-bit rough period, 4-bit shape
	{IdentityYM2149, 0xFF, 0x00},  // period read-back unmasked, shape still 4-bit
	{IdentityKC89C72, 0x1F, 0x00}, // clone keeps five bits of the rough period
}

// Detect classifies the PSG variant behind the window. It issues two indirect
// register probes and matches the read-backs against the signature table:
//
//  1. Fill RegAFreqRough with 0xFF and read it back. Every supported chip
//     forces at least some unused high bits low; a full 0xFF here is either a
//     chip that latches all bits or nothing driving the bus.
//  2. Write the bank A selector to RegShapeMode and read it back. Only the
//     AY8930 (and the AVR emulator, which latches anything) retains the
//     selector bits; standard chips clamp the shape register to 4 bits.
//
// When both probes read the floating-bus idle value the card answers nothing
// and the result is IdentityNone. A response matching no signature is
// IdentityUnknown; that is a valid terminal outcome, not an error.
//
// All probed registers are reset to zero before returning, so detection has
// no audible or persistent side effect.
func Detect(psg *PSG) DetectResult {
	defer psg.ResetAll()

	psg.Write(RegAFreqRough, 0xFF)
	maskByte := psg.Read(RegAFreqRough)

	psg.Write(RegShapeMode, bankASelect)
	modeByte := psg.Read(RegShapeMode)

	res := DetectResult{MaskByte: maskByte, ModeByte: modeByte}
	if maskByte == FloatingBus && modeByte == FloatingBus {
		res.Identity = IdentityNone
		return res
	}
	for _, sig := range signatures {
		if sig.maskByte == maskByte && sig.modeByte == modeByte {
			res.Identity = sig.id
			return res
		}
	}
	res.Identity = IdentityUnknown
	return res
}
