package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"github.com/jwulff/meetsync/internal/errs"
)

// FFmpegDevice captures raw PCM from an ffmpeg input such as avfoundation,
// pulse or alsa.
type FFmpegDevice struct {
	Binary      string // default "ffmpeg"
	InputFormat string // default per platform
	Input       string // default per platform
	Format      beep.Format
	// StartTimeout bounds how long Open waits for the first audio bytes.
	StartTimeout time.Duration
}

// DefaultInput returns the ffmpeg input format and device name for the
// current platform's default microphone.
func DefaultInput() (format, input string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", ":default"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

func (d FFmpegDevice) args() []string {
	inFmt, in := d.InputFormat, d.Input
	if inFmt == "" || in == "" {
		defFmt, defIn := DefaultInput()
		if inFmt == "" {
			inFmt = defFmt
		}
		if in == "" {
			in = defIn
		}
	}
	format := d.Format
	if format.SampleRate == 0 {
		format = DefaultFormat
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", inFmt,
		"-i", in,
		"-ac", strconv.Itoa(format.NumChannels),
		"-ar", strconv.Itoa(int(format.SampleRate)),
		"-f", "s16le",
		"-",
	}
}

// Open starts ffmpeg and waits until it produces audio or exits.
func (d FFmpegDevice) Open(ctx context.Context) (Stream, error) {
	bin := d.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, errs.DeviceUnavailable(fmt.Errorf("%s not found: %w", bin, err))
	}

	cmd := exec.Command(path, d.args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errs.DeviceUnavailable(err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, errs.DeviceUnavailable(err)
	}

	s := &ffmpegStream{
		cmd:    cmd,
		first:  make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.pump(stdout)

	timeout := d.StartTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.first:
		return s, nil
	case <-s.exited:
		s.Close() // waits, so stderr is complete
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "ffmpeg exited before producing audio"
		}
		return nil, errs.DeviceUnavailable(errors.New(msg))
	case <-timer.C:
		s.Close()
		return nil, errs.DeviceUnavailable(fmt.Errorf("no audio after %s", timeout))
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
}

type ffmpegStream struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	buf    bytes.Buffer
	paused bool

	first     chan struct{}
	firstOnce sync.Once
	exited    chan struct{}
	closeOnce sync.Once
}

func (s *ffmpegStream) pump(r io.Reader) {
	defer close(s.exited)
	p := make([]byte, 32*1024)
	for {
		n, err := r.Read(p)
		if n > 0 {
			s.firstOnce.Do(func() { close(s.first) })
			s.mu.Lock()
			if !s.paused {
				s.buf.Write(p[:n])
			}
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (s *ffmpegStream) Drain() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	s.buf.Reset()
	return out, nil
}

func (s *ffmpegStream) Pause() error {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	return nil
}

func (s *ffmpegStream) Resume() error {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	return nil
}

func (s *ffmpegStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			if kerr := s.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				err = kerr
			}
		}
		<-s.exited
		_ = s.cmd.Wait()
	})
	return err
}
