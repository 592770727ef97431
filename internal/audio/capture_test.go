package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/longkey1/pal/internal/assistant"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	permissionErr error
	recordErr     error
	stopErr       error

	permissionCalls int
	recordings      []*fakeRecording
}

func (f *fakeRecorder) RequestPermission(ctx context.Context) error {
	f.permissionCalls++
	return f.permissionErr
}

func (f *fakeRecorder) Record(ctx context.Context, path string) (Recording, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	rec := &fakeRecording{path: path, stopErr: f.stopErr}
	f.recordings = append(f.recordings, rec)
	return rec, nil
}

type fakeRecording struct {
	path    string
	stopErr error
	stopped int
}

func (f *fakeRecording) Stop() error {
	f.stopped++
	if f.stopErr != nil {
		return f.stopErr
	}
	return os.WriteFile(f.path, PCMToWAV(make([]byte, 320), assistant.CaptureSampleRate, assistant.CaptureChannels), 0o600)
}

func newTestCapture(t *testing.T, rec Recorder) *Capture {
	t.Helper()
	return NewCapture(rec, t.TempDir(), zerolog.Nop())
}

func TestVoiceStateTransitions(t *testing.T) {
	tests := []struct {
		from VoiceState
		to   VoiceState
		want bool
	}{
		{VoiceIdle, VoiceRecording, true},
		{VoiceIdle, VoiceTranscribing, false},
		{VoiceRecording, VoiceTranscribing, true},
		{VoiceRecording, VoiceIdle, true},
		{VoiceRecording, VoiceRecording, false},
		{VoiceTranscribing, VoiceIdle, true},
		{VoiceTranscribing, VoiceRecording, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestCaptureRoundTrip(t *testing.T) {
	rec := &fakeRecorder{}
	c := newTestCapture(t, rec)
	ctx := context.Background()

	require.NoError(t, c.RequestPermission(ctx))
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, VoiceRecording, c.State())

	clip, err := c.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, VoiceTranscribing, c.State())
	assert.Equal(t, assistant.CaptureSampleRate, clip.SampleRate)
	assert.Equal(t, assistant.CaptureChannels, clip.Channels)
	assert.Equal(t, assistant.CaptureBitsPerSample, clip.BitsPerSample)
	assert.FileExists(t, clip.Path)
	assert.Equal(t, 1, rec.recordings[0].stopped)

	c.Finish()
	assert.Equal(t, VoiceIdle, c.State())

	require.NoError(t, c.Discard(clip))
	assert.NoFileExists(t, clip.Path)
	assert.NoError(t, c.Discard(clip), "discarding twice is harmless")
}

func TestCaptureSingleRecording(t *testing.T) {
	rec := &fakeRecorder{}
	c := newTestCapture(t, rec)
	ctx := context.Background()

	require.NoError(t, c.RequestPermission(ctx))
	require.NoError(t, c.Start(ctx))

	err := c.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Len(t, rec.recordings, 1, "second start must not open the microphone")
	assert.Equal(t, VoiceRecording, c.State())

	_, err = c.Stop(ctx)
	require.NoError(t, err)

	err = c.Start(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition, "start while transcribing")
}

func TestCaptureStopWhileIdle(t *testing.T) {
	c := newTestCapture(t, &fakeRecorder{})

	_, err := c.Stop(context.Background())

	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, VoiceIdle, terr.From)
	assert.Equal(t, VoiceIdle, c.State())
}

func TestCapturePermissionDenied(t *testing.T) {
	rec := &fakeRecorder{permissionErr: errors.New("no device")}
	c := newTestCapture(t, rec)
	ctx := context.Background()

	err := c.RequestPermission(ctx)
	assert.ErrorIs(t, err, assistant.ErrPermissionDenied)

	err = c.Start(ctx)
	assert.ErrorIs(t, err, assistant.ErrPermissionDenied)
	assert.Empty(t, rec.recordings)
	assert.Equal(t, VoiceIdle, c.State())
}

func TestCaptureStartWithoutPermission(t *testing.T) {
	rec := &fakeRecorder{}
	c := newTestCapture(t, rec)

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, assistant.ErrPermissionDenied)
	assert.Empty(t, rec.recordings)
}

func TestCapturePermissionRemembered(t *testing.T) {
	rec := &fakeRecorder{}
	c := newTestCapture(t, rec)
	ctx := context.Background()

	require.NoError(t, c.RequestPermission(ctx))
	require.NoError(t, c.RequestPermission(ctx))
	assert.Equal(t, 1, rec.permissionCalls)
}

func TestCaptureRecordFailure(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecorder{recordErr: errors.New("device busy")}
	c := NewCapture(rec, dir, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, c.RequestPermission(ctx))
	err := c.Start(ctx)
	require.Error(t, err)
	assert.Equal(t, VoiceIdle, c.State())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no clip file left behind")
}

func TestCaptureStopFailureReturnsToIdle(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecorder{stopErr: errors.New("ffmpeg crashed")}
	c := NewCapture(rec, dir, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, c.RequestPermission(ctx))
	require.NoError(t, c.Start(ctx))

	_, err := c.Stop(ctx)
	require.Error(t, err)
	assert.Equal(t, VoiceIdle, c.State())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, c.Start(ctx), "microphone is available again")
}

func TestCaptureAbort(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecorder{}
	c := NewCapture(rec, dir, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, c.RequestPermission(ctx))
	require.NoError(t, c.Start(ctx))

	c.Abort()
	assert.Equal(t, VoiceIdle, c.State())
	assert.Equal(t, 1, rec.recordings[0].stopped)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Abort while idle is a no-op
	c.Abort()
	assert.Equal(t, VoiceIdle, c.State())
}

func TestCaptureArgs(t *testing.T) {
	tests := []struct {
		name    string
		goos    string
		device  string
		want    []string
		wantErr bool
	}{
		{
			name: "darwin default device",
			goos: "darwin",
			want: []string{"-f", "avfoundation", "-i", ":0"},
		},
		{
			name: "linux default device",
			goos: "linux",
			want: []string{"-f", "pulse", "-i", "default"},
		},
		{
			name:   "linux custom device",
			goos:   "linux",
			device: "alsa_input.usb",
			want:   []string{"-f", "pulse", "-i", "alsa_input.usb"},
		},
		{
			name:    "unsupported platform",
			goos:    "plan9",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := captureArgs(tt.goos, tt.device, "/tmp/clip.wav")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Subset(t, args, tt.want)
			assert.Contains(t, args, "16000")
			assert.Contains(t, args, "pcm_s16le")
			assert.Equal(t, "/tmp/clip.wav", args[len(args)-1])
		})
	}
}

func TestFFmpegRecorderUnavailable(t *testing.T) {
	tests := []struct {
		name string
		rec  *FFmpegRecorder
	}{
		{name: "missing binary", rec: &FFmpegRecorder{Binary: "pal-no-such-ffmpeg", GOOS: "linux"}},
		{name: "unsupported platform", rec: &FFmpegRecorder{Binary: os.Args[0], GOOS: "plan9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.RequestPermission(context.Background())
			assert.ErrorIs(t, err, ErrRecorderUnavailable)
			assert.NotErrorIs(t, err, assistant.ErrPermissionDenied)
		})
	}
}

func TestCaptureRecorderUnavailableIsNotADenial(t *testing.T) {
	rec := &fakeRecorder{permissionErr: fmt.Errorf("%w: ffmpeg not found", ErrRecorderUnavailable)}
	c := newTestCapture(t, rec)
	ctx := context.Background()

	err := c.RequestPermission(ctx)
	assert.ErrorIs(t, err, ErrRecorderUnavailable)
	assert.NotErrorIs(t, err, assistant.ErrPermissionDenied)

	// Installing the tool makes recording possible without a restart
	rec.permissionErr = nil
	require.NoError(t, c.RequestPermission(ctx))
	require.NoError(t, c.Start(ctx))
	c.Abort()
}
