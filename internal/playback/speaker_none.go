//go:build !cgo && !darwin && !windows

package playback

import (
	"errors"

	"github.com/gopxl/beep"

	"github.com/jwulff/meetsync/internal/errs"
)

// Audio output on this platform needs cgo.
func openOutput(beep.SampleRate) (output, error) {
	return nil, errs.DeviceUnavailable(errors.New("built without cgo, no audio output"))
}
