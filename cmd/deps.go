package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/longkey1/pal/internal/api"
	"github.com/longkey1/pal/internal/assistant"
	"github.com/longkey1/pal/internal/audio"
	"github.com/longkey1/pal/internal/config"
	"github.com/longkey1/pal/internal/diagnostics"
	"github.com/longkey1/pal/internal/logging"
	"github.com/longkey1/pal/internal/prefs"
	"github.com/longkey1/pal/internal/session"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// app bundles the configured components shared by the commands
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	closer  io.Closer
	client  *api.Client
	checker *diagnostics.Checker
	prefs   *prefs.Store
}

// newApp loads the configuration and builds the backend client stack
func newApp() (*app, error) {
	cfg, err := config.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, closer, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Verbose: verbose,
		Stderr:  os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	baseURL, err := cfg.GetAPIBaseURL()
	if err != nil {
		closer.Close()
		return nil, err
	}
	timeout, err := cfg.GetDiagnosticsTimeout(diagnostics.DefaultTimeout)
	if err != nil {
		closer.Close()
		return nil, err
	}

	// The probe uses its own client so health checks never recurse into the preflight
	probe := api.NewClient(baseURL, cfg.APIToken, api.WithLogger(log))
	checker := diagnostics.NewChecker(baseURL, probe,
		diagnostics.WithTimeout(timeout),
		diagnostics.WithLogger(log.With().Str("component", "diagnostics").Logger()),
	)
	client := api.NewClient(baseURL, cfg.APIToken,
		api.WithPreflight(checker),
		api.WithLogger(log.With().Str("component", "api").Logger()),
	)

	return &app{
		cfg:     cfg,
		log:     log,
		closer:  closer,
		client:  client,
		checker: checker,
		prefs:   prefs.New(prefs.Path(cfg.DataDir)),
	}, nil
}

// newSession wires a conversation session with microphone and speaker.
// onChange may be nil.
func (a *app) newSession(onChange func(assistant.Conversation)) *session.Session {
	capture := audio.NewCapture(&audio.FFmpegRecorder{
		Binary: a.cfg.FFmpegPath,
		Device: a.cfg.AudioDevice,
	}, "", a.log.With().Str("component", "capture").Logger())
	playback := audio.NewPlayback(&audio.FFplaySink{Binary: a.cfg.FFplayPath},
		a.log.With().Str("component", "playback").Logger())

	return session.New(session.Config{
		History:    a.client,
		Text:       a.client,
		Voice:      a.client,
		Microphone: capture,
		Player:     playback,
		Prefs:      a.prefs,
		Greeting:   a.cfg.Greeting,
		Logger:     a.log.With().Str("component", "session").Logger(),
		OnChange:   onChange,
	})
}

func (a *app) Close() error {
	return a.closer.Close()
}
