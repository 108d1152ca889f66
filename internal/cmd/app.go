package cmd

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/duet/internal/completion"
	"github.com/Iron-Ham/duet/internal/config"
	"github.com/Iron-Ham/duet/internal/conversation"
	"github.com/Iron-Ham/duet/internal/event"
	"github.com/Iron-Ham/duet/internal/logging"
	"github.com/Iron-Ham/duet/internal/persona"
	"github.com/Iron-Ham/duet/internal/speech"
)

// app holds everything a conversation needs, built from one config.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	bus     *event.Bus
	reg     *persona.Registry
	client  *completion.Client
	speaker *speech.CommandSpeaker
	ctrl    *conversation.Controller
}

// newApp wires the components described by cfg. speakerOpts are passed to
// the speech engine and exist for tests.
func newApp(cfg *config.Config, speakerOpts ...speech.CommandOption) (*app, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	reg, err := persona.Load(config.ExpandHome(cfg.Personas.File))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	bus := event.NewBus(logger)

	client := completion.New(completion.Options{
		Endpoint:    cfg.Completion.Endpoint,
		APIKey:      cfg.Completion.APIKey,
		Models:      cfg.Completion.Models.Map(),
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
		Timeout:     cfg.Completion.RequestTimeout,
	}, nil, logger)

	speaker := speech.NewCommandSpeaker(speech.Options{
		Engine:       cfg.Speech.Engine,
		Rate:         cfg.Speech.Rate,
		VoicePattern: cfg.Speech.VoicePattern,
		Voices:       cfg.Speech.Voices.Map(),
		Enabled:      cfg.Speech.Enabled,
		Order:        reg.Order(),
	}, logger, speakerOpts...)

	ctrl := conversation.New(reg, client, speaker, bus, logger, conversation.Options{
		TurnDelay: cfg.Conversation.TurnDelay(),
	})

	logger.Info("duet ready",
		"endpoint", cfg.Completion.Endpoint,
		"model_a", cfg.Completion.Models.A,
		"model_b", cfg.Completion.Models.B,
		"speech", cfg.Speech.Enabled,
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		bus:     bus,
		reg:     reg,
		client:  client,
		speaker: speaker,
		ctrl:    ctrl,
	}, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLogger(cfg.Logging.ResolveDir(), cfg.Logging.Level, cfg.Logging.Rotation())
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}

// watchConfig pushes speech.enabled changes from the config file into the
// running speaker.
func (a *app) watchConfig() {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		a.applyConfigChange(viper.GetViper(), e)
	})
	viper.WatchConfig()
}

// applyConfigChange applies the live-reloadable settings held by v.
// Everything else takes effect on the next launch.
func (a *app) applyConfigChange(v *viper.Viper, e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	enabled := v.GetBool("speech.enabled")
	if a.speaker.Enabled() == enabled {
		return
	}
	a.speaker.SetEnabled(enabled)
	a.logger.Info("speech setting reloaded", "enabled", enabled, "file", e.Name)
	a.bus.Publish(event.NewSpeechToggledEvent(enabled, event.SourceConfig))
}

func (a *app) close() {
	a.ctrl.Close()
	a.bus.Clear()
	_ = a.logger.Close()
}
