// Package audio owns the microphone and the speaker: clip capture with an
// explicit voice state machine, and fire-and-forget playback of synthesized replies.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/longkey1/pal/internal/assistant"
	"github.com/rs/zerolog"
)

// Recorder is the platform microphone
type Recorder interface {
	// RequestPermission asks for microphone access. Refusal wraps assistant.ErrPermissionDenied,
	// a missing capture tool wraps ErrRecorderUnavailable.
	RequestPermission(ctx context.Context) error

	// Record starts capturing 16 kHz mono 16-bit PCM into a WAV file at path.
	Record(ctx context.Context, path string) (Recording, error)
}

// Recording is an in-progress capture holding the microphone
type Recording interface {
	// Stop finalizes the file and releases the microphone
	Stop() error
}

type permission int

const (
	permissionUnknown permission = iota
	permissionGranted
	permissionDenied
)

// Capture enforces one recording at a time and owns the clip lifecycle
type Capture struct {
	rec     Recorder
	tempDir string
	log     zerolog.Logger
	now     func() time.Time

	mu         sync.Mutex
	state      VoiceState
	permission permission
	active     Recording
	path       string
	startedAt  time.Time
}

// NewCapture creates a capture controller writing clips under tempDir (os.TempDir when empty)
func NewCapture(rec Recorder, tempDir string, log zerolog.Logger) *Capture {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Capture{
		rec:     rec,
		tempDir: tempDir,
		log:     log,
		now:     time.Now,
	}
}

// State returns the current voice state
func (c *Capture) State() VoiceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestPermission asks the platform for microphone access. A granted permission is remembered.
func (c *Capture) RequestPermission(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.permission == permissionGranted {
		return nil
	}
	if err := c.rec.RequestPermission(ctx); err != nil {
		if errors.Is(err, ErrRecorderUnavailable) {
			c.log.Warn().Err(err).Msg("no audio recorder available")
			return err
		}
		c.permission = permissionDenied
		if !errors.Is(err, assistant.ErrPermissionDenied) {
			err = fmt.Errorf("%w: %v", assistant.ErrPermissionDenied, err)
		}
		c.log.Warn().Err(err).Msg("microphone permission denied")
		return err
	}
	c.permission = permissionGranted
	return nil
}

// Start begins a recording. It is allowed only while idle and with permission granted;
// otherwise it fails without side effects.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CanTransition(VoiceRecording) {
		return &TransitionError{Op: "start recording", From: c.state, To: VoiceRecording}
	}
	if c.permission != permissionGranted {
		return assistant.ErrPermissionDenied
	}

	f, err := os.CreateTemp(c.tempDir, "pal-clip-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create clip file: %w", err)
	}
	path := f.Name()
	f.Close()

	rec, err := c.rec.Record(ctx, path)
	if err != nil {
		c.removeFile(path)
		return fmt.Errorf("start recording: %w", err)
	}

	c.active = rec
	c.path = path
	c.startedAt = c.now()
	c.state = VoiceRecording
	c.log.Debug().Str("path", path).Msg("recording started")
	return nil
}

// Stop finalizes the recording, releases the microphone and returns the clip.
// On success the state becomes transcribing; on failure it returns to idle.
func (c *Capture) Stop(ctx context.Context) (assistant.Clip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CanTransition(VoiceTranscribing) {
		return assistant.Clip{}, &TransitionError{Op: "stop recording", From: c.state, To: VoiceTranscribing}
	}

	rec, path := c.active, c.path
	c.active, c.path = nil, ""

	if err := rec.Stop(); err != nil {
		c.state = VoiceIdle
		c.removeFile(path)
		return assistant.Clip{}, fmt.Errorf("stop recording: %w", err)
	}

	c.state = VoiceTranscribing
	clip := assistant.Clip{
		Path:          path,
		SampleRate:    assistant.CaptureSampleRate,
		Channels:      assistant.CaptureChannels,
		BitsPerSample: assistant.CaptureBitsPerSample,
		Duration:      c.now().Sub(c.startedAt),
	}
	c.log.Debug().Str("path", path).Dur("duration", clip.Duration).Msg("recording stopped")
	return clip, nil
}

// Finish marks the clip as consumed and returns to idle
func (c *Capture) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == VoiceTranscribing {
		c.state = VoiceIdle
	}
}

// Abort releases the microphone from any state and returns to idle
func (c *Capture) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		if err := c.active.Stop(); err != nil {
			c.log.Warn().Err(err).Msg("failed to stop aborted recording")
		}
		c.removeFile(c.path)
	}
	c.active, c.path = nil, ""
	c.state = VoiceIdle
}

// Discard deletes a consumed clip. Failures are logged and returned, never fatal.
func (c *Capture) Discard(clip assistant.Clip) error {
	if clip.Path == "" {
		return nil
	}
	if err := os.Remove(clip.Path); err != nil && !os.IsNotExist(err) {
		c.log.Warn().Err(err).Str("path", clip.Path).Msg("failed to delete audio clip")
		return err
	}
	return nil
}

func (c *Capture) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.log.Warn().Err(err).Str("path", path).Msg("failed to delete audio clip")
	}
}
