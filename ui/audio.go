// Package ui is the terminal front end: raw-mode keyboard input, ANSI text
// output, and audio playback of the emulated card's line out.
package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// SampleRate is the host playback rate the machine is asked to synthesize at.
const SampleRate = 44100

// ringBufferCapacity is ~370ms at 44.1kHz mono 16-bit (~32KB).
const ringBufferCapacity = 32768

// AudioPlayer plays the emulated card's mono output via oto. The machine
// loop pushes float32 samples; oto pulls int16 bytes from a ring buffer.
type AudioPlayer struct {
	player     *oto.Player
	ringBuffer *AudioRingBuffer
	audioBytes []byte // scratch for float32-to-int16 conversion
}

// oto context singleton
var (
	otoCtx      *oto.Context
	otoInitOnce sync.Once
	otoInitErr  error
)

// ensureOtoContext initializes the oto audio context on first use.
func ensureOtoContext() (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		<-readyChan
	})
	return otoCtx, otoInitErr
}

// NewAudioPlayer creates and starts audio playback via oto.
func NewAudioPlayer(volume float64) (*AudioPlayer, error) {
	ctx, err := ensureOtoContext()
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	rb := NewAudioRingBuffer(ringBufferCapacity)
	player := ctx.NewPlayer(rb)
	player.SetVolume(volume)
	player.Play()

	return &AudioPlayer{
		player:     player,
		ringBuffer: rb,
		audioBytes: make([]byte, 0, 4096),
	}, nil
}

// QueueSamples converts mono float32 samples to little-endian int16 bytes
// and hands them to the ring buffer.
func (a *AudioPlayer) QueueSamples(samples []float32) {
	if len(samples) == 0 {
		return
	}

	needed := len(samples) * 2
	if cap(a.audioBytes) < needed {
		a.audioBytes = make([]byte, 0, needed)
	}
	a.audioBytes = a.audioBytes[:0]
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		a.audioBytes = append(a.audioBytes, byte(v), byte(v>>8))
	}

	a.ringBuffer.Write(a.audioBytes)
}

// BufferLevel returns the total bytes of audio currently queued (ring buffer
// plus oto's internal buffer). The runner uses it to pace the machine loop.
func (a *AudioPlayer) BufferLevel() int {
	return a.ringBuffer.Buffered() + a.player.BufferedSize()
}

// Close cleans up audio resources.
func (a *AudioPlayer) Close() {
	if a.ringBuffer != nil {
		a.ringBuffer.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
}
