package capture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// Recording is the audio assembled from every chunk of a session, in order.
type Recording struct {
	Data    []byte // interleaved signed little-endian PCM
	Format  beep.Format
	Chunks  int
	Elapsed int // ticked seconds at stop
}

func assemble(chunks [][]byte, format beep.Format, elapsed int) *Recording {
	return &Recording{
		Data:    bytes.Join(chunks, nil),
		Format:  format,
		Chunks:  len(chunks),
		Elapsed: elapsed,
	}
}

// Frames is the number of sample frames in Data.
func (r *Recording) Frames() int {
	w := r.Format.Width()
	if w == 0 {
		return 0
	}
	return len(r.Data) / w
}

// Duration is the audio length implied by Data.
func (r *Recording) Duration() time.Duration {
	return r.Format.SampleRate.D(r.Frames())
}

// Streamer decodes Data into beep samples. Mono input is copied to both
// channels.
func (r *Recording) Streamer() beep.Streamer {
	width := r.Format.Width()
	prec := r.Format.Precision
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if width == 0 || prec != 2 {
			return 0, false
		}
		n := 0
		for n < len(samples) && pos+width <= len(r.Data) {
			frame := r.Data[pos : pos+width]
			left := float64(int16(binary.LittleEndian.Uint16(frame[0:2]))) / 32768
			right := left
			if r.Format.NumChannels >= 2 {
				right = float64(int16(binary.LittleEndian.Uint16(frame[2:4]))) / 32768
			}
			samples[n] = [2]float64{left, right}
			pos += width
			n++
		}
		return n, n > 0
	})
}

// WriteWAV encodes the recording as a WAV file at path.
func (r *Recording) WriteWAV(path string) error {
	if r.Format.Precision != 2 {
		return fmt.Errorf("write wav: unsupported precision %d", r.Format.Precision)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := wav.Encode(f, r.Streamer(), r.Format); err != nil {
		f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	return f.Close()
}
