package csm

// Gamepad port bits, active low. The same pins carry mouse buttons when a
// compatible mouse is attached instead of a gamepad.
const (
	padDown  = 1 << 0
	padUp    = 1 << 1
	padRight = 1 << 2
	padLeft  = 1 << 3
	padFire  = 1 << 4

	mouseLeft   = 1 << 4
	mouseMiddle = 1 << 5
	mouseRight  = 1 << 6
)

// GamepadState is the decoded state of one gamepad port.
type GamepadState struct {
	Raw                   byte
	Up, Down, Left, Right bool
	Fire                  bool
	MouseMiddle           bool
	MouseRight            bool
}

// DecodeGamepad decodes a raw gamepad port read. Pins are active low: a
// pressed button pulls its line to zero.
func DecodeGamepad(raw byte) GamepadState {
	return GamepadState{
		Raw:         raw,
		Up:          raw&padUp == 0,
		Down:        raw&padDown == 0,
		Left:        raw&padLeft == 0,
		Right:       raw&padRight == 0,
		Fire:        raw&padFire == 0,
		MouseMiddle: raw&mouseMiddle == 0,
		MouseRight:  raw&mouseRight == 0,
	}
}

// Idle reports whether nothing is pressed on the port.
func (g GamepadState) Idle() bool {
	return !g.Up && !g.Down && !g.Left && !g.Right && !g.Fire
}
