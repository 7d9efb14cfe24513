//go:build cgo || darwin || windows

package playback

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/jwulff/meetsync/internal/errs"
)

type speakerOutput struct{}

func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }
func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }

// openOutput initialises the speaker with a 100ms buffer.
func openOutput(rate beep.SampleRate) (output, error) {
	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return nil, errs.DeviceUnavailable(err)
	}
	return speakerOutput{}, nil
}
