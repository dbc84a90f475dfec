package ui

import (
	"os"

	"golang.org/x/term"
)

// KeyEscape is the cancel key every scenario honors.
const KeyEscape = 0x1B

// Keyboard puts the controlling terminal in raw mode and delivers single
// keystrokes without waiting for Enter. A reader goroutine feeds a channel
// so the machine loop can poll for input between steps.
type Keyboard struct {
	oldState *term.State
	keys     chan byte
	done     chan struct{}
}

// NewKeyboard switches stdin to raw mode and starts the reader. The caller
// must Close to restore the terminal; pair it with a defer in main.
func NewKeyboard() (*Keyboard, error) {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}

	k := &Keyboard{
		oldState: oldState,
		keys:     make(chan byte, 16),
		done:     make(chan struct{}),
	}
	go k.readLoop()
	return k, nil
}

func (k *Keyboard) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		select {
		case k.keys <- buf[0]:
		case <-k.done:
			return
		default:
			// Drop keystrokes nobody is consuming.
		}
	}
}

// Poll returns the next pending keystroke, if any, without blocking.
func (k *Keyboard) Poll() (byte, bool) {
	select {
	case b := <-k.keys:
		return b, true
	default:
		return 0, false
	}
}

// Wait blocks until a keystroke arrives.
func (k *Keyboard) Wait() byte {
	return <-k.keys
}

// CancelCheck returns a poll function that reports true once escape has
// been pressed. Other keys seen while polling are discarded.
func (k *Keyboard) CancelCheck() func() bool {
	cancelled := false
	return func() bool {
		if cancelled {
			return true
		}
		if b, ok := k.Poll(); ok && b == KeyEscape {
			cancelled = true
		}
		return cancelled
	}
}

// Close restores the terminal state. The reader goroutine may stay blocked
// in os.Stdin.Read until one more byte arrives; it exits on that read, and
// process exit tears it down regardless.
func (k *Keyboard) Close() {
	close(k.done)
	term.Restore(int(os.Stdin.Fd()), k.oldState)
}
