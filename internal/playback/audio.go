package playback

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// output is the device an AudioSource streams to. Lock guards state the
// device goroutine reads while pulling samples.
type output interface {
	sync.Locker
	Play(s beep.Streamer)
}

// AudioSource is a media clock that plays a WAV file. Positions come from
// the decoder, so highlighting follows the samples handed to the device.
type AudioSource struct {
	lock   sync.Locker
	stream beep.StreamSeekCloser
	ctrl   *beep.Ctrl
	rate   beep.SampleRate
}

// OpenAudio decodes the WAV file at path and attaches it, paused, to the
// system audio output.
func OpenAudio(path string) (*AudioSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	stream, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	out, err := openOutput(format.SampleRate)
	if err != nil {
		stream.Close()
		return nil, err
	}
	s := newAudioSource(stream, format.SampleRate, out)
	out.Play(s.ctrl)
	return s, nil
}

func newAudioSource(stream beep.StreamSeekCloser, rate beep.SampleRate, lock sync.Locker) *AudioSource {
	// The device keeps pulling past the end: silence, never drained, so a
	// seek back can play again.
	endless := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		n, _ := stream.Stream(samples)
		clear(samples[n:])
		return len(samples), true
	})
	return &AudioSource{
		lock:   lock,
		stream: stream,
		ctrl:   &beep.Ctrl{Streamer: endless, Paused: true},
		rate:   rate,
	}
}

func (s *AudioSource) Position() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.rate.D(s.stream.Position()).Seconds()
}

func (s *AudioSource) Duration() float64 {
	return s.rate.D(s.stream.Len()).Seconds()
}

func (s *AudioSource) Playing() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return !s.ctrl.Paused && s.stream.Position() < s.stream.Len()
}

// Play resumes output, from the beginning when already at the end.
func (s *AudioSource) Play() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.stream.Position() >= s.stream.Len() {
		if err := s.stream.Seek(0); err != nil {
			return err
		}
	}
	s.ctrl.Paused = false
	return nil
}

func (s *AudioSource) Pause() error {
	s.lock.Lock()
	s.ctrl.Paused = true
	s.lock.Unlock()
	return nil
}

func (s *AudioSource) Seek(t float64) error {
	if d := s.Duration(); t < 0 || t > d {
		return fmt.Errorf("seek %.2f outside [0, %.2f]", t, d)
	}
	n := min(s.rate.N(time.Duration(t*float64(time.Second))), s.stream.Len())
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.stream.Seek(n)
}

// Close detaches the source from the device and closes the file.
func (s *AudioSource) Close() error {
	s.lock.Lock()
	s.ctrl.Streamer = nil
	s.lock.Unlock()
	return s.stream.Close()
}
