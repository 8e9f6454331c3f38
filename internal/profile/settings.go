// internal/profile/settings.go
// Package profile stores per-learner settings and scores on disk.
package profile

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwtutor/internal/practice"
	"github.com/ColonelBlimp/cwtutor/internal/sidetone"
)

// ErrMalformedSettings indicates the settings document could not be parsed
var ErrMalformedSettings = errors.New("malformed settings document")

// KeyBindings maps terminal keys to key sources.
type KeyBindings struct {
	StraightKey string `mapstructure:"straight_key"`
	PaddleDit   string `mapstructure:"paddle_dit"`
	PaddleDah   string `mapstructure:"paddle_dah"`
}

// Settings is the per-profile settings document.
type Settings struct {
	WPM               int            `mapstructure:"wpm"`
	FarnsworthWPM     int            `mapstructure:"farnsworth_wpm"`
	FarnsworthEnabled bool           `mapstructure:"farnsworth_enabled"`
	PracticeGroups    []string       `mapstructure:"practice_groups"`
	SampleLength      int            `mapstructure:"sample_length"`
	Palette           string         `mapstructure:"palette"`
	ReverseColors     bool           `mapstructure:"reverse_colors"`
	BuzzerFrequency   float64        `mapstructure:"buzzer_frequency"`
	BuzzerVolume      float64        `mapstructure:"buzzer_volume"`
	OutputMode        string         `mapstructure:"output_mode"`
	SwapPaddle        bool           `mapstructure:"swap_paddle"`
	Pins              map[string]int `mapstructure:"pins"`
	KeyBindings       KeyBindings    `mapstructure:"key_bindings"`
	LastLoadedFile    string         `mapstructure:"last_loaded_file"`

	// extra holds keys this version does not know, written back unchanged
	extra map[string]any
}

// DefaultPalette is the palette of a new profile
const DefaultPalette = "Deuteranopia (Red-Green)"

var knownKeys = []string{
	"wpm", "farnsworth_wpm", "farnsworth_enabled", "practice_groups", "sample_length",
	"palette", "reverse_colors", "buzzer_frequency", "buzzer_volume", "output_mode",
	"swap_paddle", "pins", "key_bindings", "last_loaded_file",
}

// DefaultSettings returns the settings of a new profile.
func DefaultSettings() Settings {
	return Settings{
		WPM:             15,
		FarnsworthWPM:   15,
		PracticeGroups:  append([]string(nil), practice.DefaultGroups...),
		SampleLength:    practice.DefaultSampleLength,
		Palette:         DefaultPalette,
		BuzzerFrequency: 700,
		BuzzerVolume:    0.5,
		OutputMode:      string(sidetone.OutputBuzzer),
		Pins: map[string]int{
			"buzzer": 12, "dit_led": 23, "dah_led": 24, "tick_led": 25,
			"paddle_dit": 2, "paddle_dah": 3, "straight_key": 4,
		},
		KeyBindings: KeyBindings{StraightKey: "space", PaddleDit: "f", PaddleDah: "j"},
	}
}

func newSettingsViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	d := DefaultSettings()
	v.SetDefault("wpm", d.WPM)
	v.SetDefault("farnsworth_wpm", d.FarnsworthWPM)
	v.SetDefault("farnsworth_enabled", d.FarnsworthEnabled)
	v.SetDefault("practice_groups", d.PracticeGroups)
	v.SetDefault("sample_length", d.SampleLength)
	v.SetDefault("palette", d.Palette)
	v.SetDefault("reverse_colors", d.ReverseColors)
	v.SetDefault("buzzer_frequency", d.BuzzerFrequency)
	v.SetDefault("buzzer_volume", d.BuzzerVolume)
	v.SetDefault("output_mode", d.OutputMode)
	v.SetDefault("swap_paddle", d.SwapPaddle)
	v.SetDefault("pins", d.Pins)
	v.SetDefault("key_bindings.straight_key", d.KeyBindings.StraightKey)
	v.SetDefault("key_bindings.paddle_dit", d.KeyBindings.PaddleDit)
	v.SetDefault("key_bindings.paddle_dah", d.KeyBindings.PaddleDah)
	v.SetDefault("last_loaded_file", d.LastLoadedFile)
	return v
}

// LoadSettings reads a settings document. A missing file yields defaults.
// A malformed file yields defaults and an error wrapping ErrMalformedSettings.
func LoadSettings(path string) (Settings, error) {
	v := newSettingsViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return DefaultSettings(), fmt.Errorf("%s: %w: %v", path, ErrMalformedSettings, err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return DefaultSettings(), fmt.Errorf("%s: %w: %v", path, ErrMalformedSettings, err)
	}

	known := make(map[string]bool, len(knownKeys))
	for _, k := range knownKeys {
		known[k] = true
	}
	for k, val := range v.AllSettings() {
		if !known[k] {
			if s.extra == nil {
				s.extra = map[string]any{}
			}
			s.extra[k] = val
		}
	}
	return s, nil
}

// SaveSettings writes s to path as YAML, including any unknown keys read earlier.
func SaveSettings(path string, s Settings) error {
	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range s.extra {
		v.Set(k, val)
	}
	v.Set("wpm", s.WPM)
	v.Set("farnsworth_wpm", s.FarnsworthWPM)
	v.Set("farnsworth_enabled", s.FarnsworthEnabled)
	v.Set("practice_groups", s.PracticeGroups)
	v.Set("sample_length", s.SampleLength)
	v.Set("palette", s.Palette)
	v.Set("reverse_colors", s.ReverseColors)
	v.Set("buzzer_frequency", s.BuzzerFrequency)
	v.Set("buzzer_volume", s.BuzzerVolume)
	v.Set("output_mode", s.OutputMode)
	v.Set("swap_paddle", s.SwapPaddle)
	v.Set("pins", s.Pins)
	v.Set("key_bindings", map[string]any{
		"straight_key": s.KeyBindings.StraightKey,
		"paddle_dit":   s.KeyBindings.PaddleDit,
		"paddle_dah":   s.KeyBindings.PaddleDah,
	})
	v.Set("last_loaded_file", s.LastLoadedFile)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Extra returns the names of keys kept only for round-tripping, sorted.
func (s Settings) Extra() []string {
	keys := make([]string, 0, len(s.extra))
	for k := range s.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EffectiveFarnsworth returns the Farnsworth speed to use, 0 when disabled.
func (s Settings) EffectiveFarnsworth() int {
	if !s.FarnsworthEnabled || s.FarnsworthWPM >= s.WPM {
		return 0
	}
	return s.FarnsworthWPM
}

// Validate checks that all settings are within acceptable ranges
func (s Settings) Validate() error {
	var errs []error

	if s.WPM < 5 || s.WPM > 60 {
		errs = append(errs, fmt.Errorf("wpm must be between 5 and 60, got %d", s.WPM))
	}
	if s.FarnsworthEnabled && (s.FarnsworthWPM < 1 || s.FarnsworthWPM > s.WPM) {
		errs = append(errs, fmt.Errorf("farnsworth_wpm must be between 1 and wpm (%d), got %d", s.WPM, s.FarnsworthWPM))
	}
	if s.SampleLength < 1 || s.SampleLength > 100 {
		errs = append(errs, fmt.Errorf("sample_length must be between 1 and 100, got %d", s.SampleLength))
	}
	for _, id := range s.PracticeGroups {
		if _, ok := practice.LookupGroup(id); !ok {
			errs = append(errs, fmt.Errorf("practice_groups: %q: %w", id, practice.ErrUnknownGroup))
		}
	}
	if s.BuzzerFrequency < 100 || s.BuzzerFrequency > 3000 {
		errs = append(errs, fmt.Errorf("buzzer_frequency must be between 100 and 3000 Hz, got %v", s.BuzzerFrequency))
	}
	if s.BuzzerVolume < 0 || s.BuzzerVolume > 1 {
		errs = append(errs, fmt.Errorf("buzzer_volume must be between 0.0 and 1.0, got %v", s.BuzzerVolume))
	}
	if _, err := sidetone.ParseOutputMode(s.OutputMode); err != nil {
		errs = append(errs, fmt.Errorf("output_mode: %w", err))
	}
	kb := s.KeyBindings
	if kb.PaddleDit == "" || kb.PaddleDah == "" || kb.PaddleDit == kb.PaddleDah {
		errs = append(errs, fmt.Errorf("key_bindings: paddle_dit and paddle_dah must be distinct, got %q and %q", kb.PaddleDit, kb.PaddleDah))
	}

	return errors.Join(errs...)
}
