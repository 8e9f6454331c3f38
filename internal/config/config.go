// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	AppName       = "cwtutor"
	ConfigType    = "yaml"
	DefaultConfig = `# CW Tutor Configuration

# Profiles
profiles_dir: ""          # Profile directory ("" = <config dir>/cwtutor/profiles)
profile: "default"        # Profile loaded at startup

# Logging
log_level: "info"         # debug, info, warn, error
log_file: ""              # Log file for the console UI ("" = <config dir>/cwtutor/cwtutor.log)
debug: false              # Development logging (console encoder, caller info)

# Keying engine
idle_timeout_ms: 2000     # Key-up time after which a pending character is decoded (raised to a word gap plus a dah)
poll_interval_ms: 10      # Straight key / tone detector sampling period
sidetone_timeout_ms: 5000 # Safety timer: force the sidetone off after this long
rolling_window_s: 30      # Window for the live WPM figure
queue_size: 256           # Input event queue capacity

# Audio device settings
device_index: -1          # -1 for default device
sample_rate: 48000        # Audio sample rate in Hz
buffer_size: 256          # Frames per audio callback

# Tone detection (listen mode)
tone_frequency: 600       # Received CW tone frequency in Hz
block_size: 256           # Goertzel block size (samples per detection window)
threshold: 0.2            # Detection threshold (0.0-1.0), tone magnitude must exceed this
hysteresis: 2             # Consecutive blocks required to confirm a key change
`
)

// Settings holds all application configuration
type Settings struct {
	// Profiles
	ProfilesDir string `mapstructure:"profiles_dir"`
	Profile     string `mapstructure:"profile"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Debug    bool   `mapstructure:"debug"`

	// Keying engine
	IdleTimeoutMS     int `mapstructure:"idle_timeout_ms"`
	PollIntervalMS    int `mapstructure:"poll_interval_ms"`
	SidetoneTimeoutMS int `mapstructure:"sidetone_timeout_ms"`
	RollingWindowS    int `mapstructure:"rolling_window_s"`
	QueueSize         int `mapstructure:"queue_size"`

	// Audio device settings
	DeviceIndex int     `mapstructure:"device_index"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	BufferSize  int     `mapstructure:"buffer_size"`

	// Tone detection
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	Threshold     float64 `mapstructure:"threshold"`
	Hysteresis    int     `mapstructure:"hysteresis"`
}

// Dir returns the application config directory.
func Dir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, AppName)
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwtutor/
func Init() error {
	viper.SetDefault("profiles_dir", "")
	viper.SetDefault("profile", "default")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("debug", false)
	viper.SetDefault("idle_timeout_ms", 2000)
	viper.SetDefault("poll_interval_ms", 10)
	viper.SetDefault("sidetone_timeout_ms", 5000)
	viper.SetDefault("rolling_window_s", 30)
	viper.SetDefault("queue_size", 256)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("buffer_size", 256)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 256)
	viper.SetDefault("threshold", 0.2)
	viper.SetDefault("hysteresis", 2)

	viper.SetConfigType(ConfigType)
	viper.SetEnvPrefix("CWTUTOR")
	viper.AutomaticEnv()

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")
	viper.AddConfigPath(Dir())

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	err := viper.ReadInConfig()
	if err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(Dir()); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings with derived paths filled in
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if s.ProfilesDir == "" {
		s.ProfilesDir = filepath.Join(Dir(), "profiles")
	}
	if s.LogFile == "" {
		s.LogFile = filepath.Join(Dir(), AppName+".log")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Watch reloads the config file when it changes and passes the new settings
// to fn. Invalid edits are logged and ignored.
func Watch(logger *zap.Logger, fn func(*Settings)) {
	if logger == nil {
		logger = zap.NewNop()
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		s, err := Get()
		if err != nil {
			logger.Error("ignoring config change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		logger.Info("configuration file changed, reloading", zap.String("file", e.Name))
		fn(s)
	})
	viper.WatchConfig()
}

// IdleTimeout returns idle_timeout_ms as a duration
func (s *Settings) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutMS) * time.Millisecond
}

// PollInterval returns poll_interval_ms as a duration
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// SidetoneTimeout returns sidetone_timeout_ms as a duration
func (s *Settings) SidetoneTimeout() time.Duration {
	return time.Duration(s.SidetoneTimeoutMS) * time.Millisecond
}

// RollingWindow returns rolling_window_s as a duration
func (s *Settings) RollingWindow() time.Duration {
	return time.Duration(s.RollingWindowS) * time.Second
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	if s.Profile == "" {
		errs = append(errs, errors.New("profile must not be empty"))
	}
	if _, err := zapcore.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s.LogLevel))
	}

	// Keying engine
	if s.IdleTimeoutMS < 100 || s.IdleTimeoutMS > 60000 {
		errs = append(errs, fmt.Errorf("idle_timeout_ms must be between 100 and 60000, got %d", s.IdleTimeoutMS))
	}
	if s.PollIntervalMS < 1 || s.PollIntervalMS > 100 {
		errs = append(errs, fmt.Errorf("poll_interval_ms must be between 1 and 100, got %d", s.PollIntervalMS))
	}
	if s.SidetoneTimeoutMS < 500 || s.SidetoneTimeoutMS > 60000 {
		errs = append(errs, fmt.Errorf("sidetone_timeout_ms must be between 500 and 60000, got %d", s.SidetoneTimeoutMS))
	}
	if s.RollingWindowS < 5 || s.RollingWindowS > 600 {
		errs = append(errs, fmt.Errorf("rolling_window_s must be between 5 and 600, got %d", s.RollingWindowS))
	}
	if s.QueueSize < 16 || s.QueueSize > 65536 {
		errs = append(errs, fmt.Errorf("queue_size must be between 16 and 65536, got %d", s.QueueSize))
	}

	// Audio device settings
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}

	// Tone detection
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	return errors.Join(errs...)
}
