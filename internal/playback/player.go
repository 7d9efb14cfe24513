package playback

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/wav"
)

// Player is a media clock that advances with wall time while playing. It
// stops on its own at the end.
type Player struct {
	mu       sync.Mutex
	now      func() time.Time
	duration float64
	base     float64
	started  time.Time
	playing  bool
}

// NewPlayer returns a paused player at 0 for media of the given length.
func NewPlayer(duration float64) *Player {
	return &Player{now: time.Now, duration: duration}
}

// FileDuration reads the length of a WAV file in seconds.
func FileDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, format, err := wav.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode wav: %w", err)
	}
	return format.SampleRate.D(s.Len()).Seconds(), nil
}

func (p *Player) position() float64 {
	t := p.base
	if p.playing {
		t += p.now().Sub(p.started).Seconds()
	}
	if t > p.duration {
		t = p.duration
	}
	return t
}

func (p *Player) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position()
}

func (p *Player) Duration() float64 { return p.duration }

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && p.position() < p.duration
}

// Play starts the clock, from the beginning when already at the end.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing && p.position() < p.duration {
		return nil
	}
	if p.position() >= p.duration {
		p.base = 0
	}
	p.started = p.now()
	p.playing = true
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.position()
	p.playing = false
	return nil
}

func (p *Player) Seek(t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t < 0 || t > p.duration {
		return fmt.Errorf("seek %.2f outside [0, %.2f]", t, p.duration)
	}
	p.base = t
	p.started = p.now()
	return nil
}
