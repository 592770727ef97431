package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrEmptyAudio       = errors.New("empty audio payload")
	ErrUnsupportedAudio = errors.New("unsupported audio container")
)

// Sink plays a complete audio payload and returns when playback has ended
type Sink interface {
	Play(ctx context.Context, audio []byte, container string) error
}

// Playback decodes and plays synthesized replies
type Playback struct {
	sink Sink
	log  zerolog.Logger
}

// NewPlayback creates a playback controller over sink
func NewPlayback(sink Sink, log zerolog.Logger) *Playback {
	return &Playback{sink: sink, log: log}
}

// Play plays audio to completion. The platform player is released on completion,
// failure or context cancellation.
func (p *Playback) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return ErrEmptyAudio
	}
	container := DetectContainer(audio)
	if container == "" {
		return ErrUnsupportedAudio
	}

	p.log.Debug().Str("container", container).Int("bytes", len(audio)).Msg("playing reply audio")
	if err := p.sink.Play(ctx, audio, container); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}

// FFplaySink pipes audio into ffplay
type FFplaySink struct {
	// Binary is the ffplay executable, "ffplay" when empty
	Binary string
}

// Play runs ffplay until the payload has been played
func (s *FFplaySink) Play(ctx context.Context, audio []byte, container string) error {
	bin := s.Binary
	if bin == "" {
		bin = "ffplay"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("ffplay not available: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "-nodisp", "-autoexit", "-loglevel", "error", "-f", container, "-i", "pipe:0")
	stderr := &bytes.Buffer{}
	cmd.Stdin = bytes.NewReader(audio)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffplay failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
