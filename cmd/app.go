package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwtutor/internal/audio"
	"github.com/ColonelBlimp/cwtutor/internal/config"
	"github.com/ColonelBlimp/cwtutor/internal/dsp"
	"github.com/ColonelBlimp/cwtutor/internal/input"
	"github.com/ColonelBlimp/cwtutor/internal/keyer"
	"github.com/ColonelBlimp/cwtutor/internal/logging"
	"github.com/ColonelBlimp/cwtutor/internal/morse"
	"github.com/ColonelBlimp/cwtutor/internal/practice"
	"github.com/ColonelBlimp/cwtutor/internal/profile"
	"github.com/ColonelBlimp/cwtutor/internal/sidetone"
	"github.com/ColonelBlimp/cwtutor/internal/trainer"
)

// app is what every command needs: validated settings, a logger and the
// profile store.
type app struct {
	settings *config.Settings
	logger   *zap.Logger
	level    zap.AtomicLevel
	store    *profile.Store
}

// newApp loads the settings and builds the logger. toFile sends logs to
// log_file instead of stderr, for commands that own the terminal.
func newApp(toFile bool) (*app, error) {
	s, err := config.Get()
	if err != nil {
		return nil, err
	}
	lcfg := logging.Config{Level: s.LogLevel, Debug: s.Debug}
	if toFile {
		lcfg.File = s.LogFile
	}
	logger, level, err := logging.New(lcfg)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	store, err := profile.NewStore(s.ProfilesDir, logger)
	if err != nil {
		return nil, err
	}
	return &app{settings: s, logger: logger, level: level, store: store}, nil
}

// watch applies log level changes made to the config file while running.
func (a *app) watch() {
	config.Watch(a.logger, func(s *config.Settings) {
		if err := logging.SetLevel(a.level, s.LogLevel); err != nil {
			a.logger.Warn("log level not changed", zap.Error(err))
		}
	})
}

func (a *app) close() {
	_ = logging.Sync(a.logger)
}

// openProfile opens (or creates) the selected profile. A malformed settings
// document is logged and the defaults are used.
func (a *app) openProfile() (*profile.Profile, error) {
	p, err := a.store.OpenOrCreate(a.settings.Profile)
	if err != nil {
		if p != nil && errors.Is(err, profile.ErrMalformedSettings) {
			return p, nil
		}
		return nil, err
	}
	return p, nil
}

func (a *app) audioConfig() audio.Config {
	return audio.Config{
		DeviceIndex: a.settings.DeviceIndex,
		SampleRate:  uint32(a.settings.SampleRate),
		BufferSize:  uint32(a.settings.BufferSize),
	}
}

// newSidetone builds the buzzer for the profile's output mode. When the audio
// device cannot be opened the sidetone falls back to the terminal bell (or
// silence). The returned func releases the device.
func (a *app) newSidetone(ctx context.Context, ps profile.Settings) (*sidetone.Buzzer, func(), error) {
	mode, err := sidetone.ParseOutputMode(ps.OutputMode)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}

	var sinks sidetone.Multi
	if mode == sidetone.OutputBuzzer || mode == sidetone.OutputBoth {
		sinks = append(sinks, sidetone.Bell{W: os.Stderr})
	}
	if mode.UsesAudio() {
		pb, err := a.startPlayback(ctx, ps)
		if err != nil {
			a.logger.Warn("audio sidetone unavailable", zap.Error(err))
		} else {
			sinks = append(sinks, pb)
			cleanup = func() {
				if err := pb.Close(); err != nil {
					a.logger.Warn("close audio playback", zap.Error(err))
				}
			}
		}
	}

	var sink sidetone.Sink = sidetone.Nop{}
	if len(sinks) > 0 {
		sink = sinks
	}
	a.logger.Debug("sidetone ready", zap.String("output_mode", string(mode)), zap.Int("sinks", len(sinks)))
	return sidetone.NewBuzzer(sink, a.settings.SidetoneTimeout(), a.logger), cleanup, nil
}

func (a *app) startPlayback(ctx context.Context, ps profile.Settings) (*audio.Playback, error) {
	osc, err := dsp.NewOscillator(dsp.ToneConfig{
		Frequency:  ps.BuzzerFrequency,
		SampleRate: a.settings.SampleRate,
	}, ps.BuzzerVolume)
	if err != nil {
		return nil, err
	}
	pb, err := audio.NewPlayback(a.audioConfig(), osc, a.logger)
	if err != nil {
		return nil, err
	}
	if err := pb.Init(); err != nil {
		return nil, err
	}
	if err := pb.Start(ctx); err != nil {
		_ = pb.Close()
		return nil, err
	}
	return pb, nil
}

// engine is the keying pipeline shared by practice and listen.
type engine struct {
	queue  *input.Queue
	runner *trainer.Runner
}

func (a *app) newEngine(prof *profile.Profile, table *morse.Table, silencer trainer.Silencer) (*engine, error) {
	ps := prof.Settings
	queue, err := input.NewQueue(a.settings.QueueSize)
	if err != nil {
		return nil, err
	}
	classifier, err := keyer.New(keyer.Config{
		WPM:           ps.WPM,
		FarnsworthWPM: ps.EffectiveFarnsworth(),
		IdleTimeout:   a.settings.IdleTimeout(),
	}, table)
	if err != nil {
		return nil, err
	}
	session := practice.New(practice.Config{
		RollingWindow: a.settings.RollingWindow(),
		Recorder:      prof,
		Logger:        a.logger,
	})
	runner, err := trainer.New(trainer.Config{}, classifier, session, queue, silencer, a.logger)
	if err != nil {
		return nil, err
	}
	return &engine{queue: queue, runner: runner}, nil
}

// practiceSource picks the passage file when one is given, else the groups
// (flag overrides the profile).
func practiceSource(prof *profile.Profile, table *morse.Table, file string, groups []string) (practice.Source, error) {
	if file != "" {
		return loadPassage(prof, table, file)
	}
	if len(groups) == 0 {
		groups = prof.Settings.PracticeGroups
	}
	return practice.GroupSource{Groups: groups, Length: prof.Settings.SampleLength}, nil
}

// loadPassage opens a passage and remembers it in the profile.
func loadPassage(prof *profile.Profile, table *morse.Table, path string) (practice.Source, error) {
	src, err := practice.LoadPassage(path, table)
	if err != nil {
		return nil, err
	}
	if len(src.Paragraphs()) == 0 {
		return nil, fmt.Errorf("%s: %w", path, practice.ErrNoParagraphs)
	}
	prof.Settings.LastLoadedFile = path
	if err := prof.SaveSettings(); err != nil {
		return nil, err
	}
	return src, nil
}
