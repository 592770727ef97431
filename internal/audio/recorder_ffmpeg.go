package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/longkey1/pal/internal/assistant"
)

const defaultStopTimeout = 3 * time.Second

// FFmpegRecorder captures the default microphone with the ffmpeg binary
type FFmpegRecorder struct {
	// Binary is the ffmpeg executable, "ffmpeg" when empty
	Binary string
	// Device overrides the platform input device
	Device string
	// GOOS selects the capture backend, runtime.GOOS when empty
	GOOS string
	// StopTimeout bounds how long Stop waits before killing ffmpeg
	StopTimeout time.Duration
}

func (r *FFmpegRecorder) binary() string {
	if r.Binary == "" {
		return "ffmpeg"
	}
	return r.Binary
}

func (r *FFmpegRecorder) goos() string {
	if r.GOOS == "" {
		return runtime.GOOS
	}
	return r.GOOS
}

// RequestPermission checks that ffmpeg is installed and the platform has a capture backend.
// Access to the device itself is granted by the operating system when ffmpeg opens it.
func (r *FFmpegRecorder) RequestPermission(ctx context.Context) error {
	if _, err := exec.LookPath(r.binary()); err != nil {
		return fmt.Errorf("%w: ffmpeg not available: %v", ErrRecorderUnavailable, err)
	}
	if _, err := captureInputArgs(r.goos(), r.Device); err != nil {
		return fmt.Errorf("%w: %v", ErrRecorderUnavailable, err)
	}
	return nil
}

// Record starts ffmpeg writing a WAV clip to path
func (r *FFmpegRecorder) Record(ctx context.Context, path string) (Recording, error) {
	args, err := captureArgs(r.goos(), r.Device, path)
	if err != nil {
		return nil, err
	}

	// The recording outlives the request context, so ctx only gates the start.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(r.binary(), args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	timeout := r.StopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	return &ffmpegRecording{cmd: cmd, stdin: stdin, stderr: stderr, timeout: timeout}, nil
}

type ffmpegRecording struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *bytes.Buffer
	timeout time.Duration
}

// Stop asks ffmpeg to quit so it writes the WAV trailer, and kills it if it does not
func (r *ffmpegRecording) Stop() error {
	_, _ = io.WriteString(r.stdin, "q")
	_ = r.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- r.cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg exited: %w: %s", err, strings.TrimSpace(r.stderr.String()))
		}
		return nil
	case <-time.After(r.timeout):
		_ = r.cmd.Process.Kill()
		<-done
		return fmt.Errorf("ffmpeg did not stop within %s", r.timeout)
	}
}

func captureInputArgs(goos, device string) ([]string, error) {
	switch goos {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return []string{"-f", "avfoundation", "-i", device}, nil
	case "linux":
		if device == "" {
			device = "default"
		}
		return []string{"-f", "pulse", "-i", device}, nil
	default:
		return nil, fmt.Errorf("microphone capture is not supported on %s", goos)
	}
}

func captureArgs(goos, device, path string) ([]string, error) {
	input, err := captureInputArgs(goos, device)
	if err != nil {
		return nil, err
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-nostats"}
	args = append(args, input...)
	args = append(args,
		"-ac", strconv.Itoa(assistant.CaptureChannels),
		"-ar", strconv.Itoa(assistant.CaptureSampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"-y", path,
	)
	return args, nil
}
