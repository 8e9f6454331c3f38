package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetViper() {
	viper.Reset()
}

// isolateHome points the user config dir at a fresh temp directory.
func isolateHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	return tmpDir
}

func writeXDGConfig(t *testing.T, home, content string) {
	t.Helper()
	configDir := filepath.Join(home, ".config", AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Logf("failed to restore dir: %v", err)
		}
	})
}

func TestInit_WithDefaults(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	writeXDGConfig(t, home, DefaultConfig)

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
	}{
		{"profiles_dir", ""},
		{"profile", "default"},
		{"log_level", "info"},
		{"debug", false},
		{"idle_timeout_ms", 2000},
		{"poll_interval_ms", 10},
		{"sidetone_timeout_ms", 5000},
		{"rolling_window_s", 30},
		{"queue_size", 256},
		{"device_index", -1},
		{"sample_rate", 48000},
		{"buffer_size", 256},
		{"tone_frequency", 600},
		{"block_size", 256},
		{"threshold", 0.2},
		{"hysteresis", 2},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.expected {
				t.Errorf("viper.Get(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestInit_CreatesConfigIfMissing(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	chdir(t, t.TempDir())

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	configPath := filepath.Join(home, ".config", AppName, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Errorf("Init() did not create config file at %s", configPath)
	}
}

func TestInit_ReadsLocalConfigFirst(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	writeXDGConfig(t, home, "profile: xdg")

	chdir(t, home)
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("profile: local"), 0644); err != nil {
		t.Fatalf("failed to write local config: %v", err)
	}

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if got := viper.GetString("profile"); got != "local" {
		t.Errorf("viper.GetString(profile) = %q, want local (local config)", got)
	}
}

func TestInit_EnvironmentOverrides(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	writeXDGConfig(t, home, DefaultConfig)
	t.Setenv("CWTUTOR_PROFILE", "alice")

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := viper.GetString("profile"); got != "alice" {
		t.Errorf("viper.GetString(profile) = %q, want alice", got)
	}
}

func TestGet_ReturnsSettings(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	writeXDGConfig(t, home, DefaultConfig)

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	settings, err := Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if settings.Profile != "default" {
		t.Errorf("Settings.Profile = %q, want default", settings.Profile)
	}
	wantProfiles := filepath.Join(home, ".config", AppName, "profiles")
	if settings.ProfilesDir != wantProfiles {
		t.Errorf("Settings.ProfilesDir = %q, want %q", settings.ProfilesDir, wantProfiles)
	}
	wantLog := filepath.Join(home, ".config", AppName, AppName+".log")
	if settings.LogFile != wantLog {
		t.Errorf("Settings.LogFile = %q, want %q", settings.LogFile, wantLog)
	}
	if settings.DeviceIndex != -1 {
		t.Errorf("Settings.DeviceIndex = %d, want -1", settings.DeviceIndex)
	}
	if settings.SampleRate != 48000 {
		t.Errorf("Settings.SampleRate = %f, want 48000", settings.SampleRate)
	}
	if settings.IdleTimeout() != 2*time.Second {
		t.Errorf("Settings.IdleTimeout() = %v, want 2s", settings.IdleTimeout())
	}
	if settings.PollInterval() != 10*time.Millisecond {
		t.Errorf("Settings.PollInterval() = %v, want 10ms", settings.PollInterval())
	}
	if settings.SidetoneTimeout() != 5*time.Second {
		t.Errorf("Settings.SidetoneTimeout() = %v, want 5s", settings.SidetoneTimeout())
	}
	if settings.RollingWindow() != 30*time.Second {
		t.Errorf("Settings.RollingWindow() = %v, want 30s", settings.RollingWindow())
	}
	if settings.Debug != false {
		t.Errorf("Settings.Debug = %v, want false", settings.Debug)
	}
}

func TestGet_AllFields(t *testing.T) {
	resetViper()
	home := isolateHome(t)

	customConfig := `profiles_dir: /srv/cw/profiles
profile: bob
log_level: debug
log_file: /tmp/cw.log
debug: true
idle_timeout_ms: 1500
poll_interval_ms: 5
sidetone_timeout_ms: 3000
rolling_window_s: 60
queue_size: 512
device_index: 2
sample_rate: 44100
buffer_size: 512
tone_frequency: 700
block_size: 128
threshold: 0.5
hysteresis: 3
`
	writeXDGConfig(t, home, customConfig)

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	settings, err := Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	want := Settings{
		ProfilesDir:       "/srv/cw/profiles",
		Profile:           "bob",
		LogLevel:          "debug",
		LogFile:           "/tmp/cw.log",
		Debug:             true,
		IdleTimeoutMS:     1500,
		PollIntervalMS:    5,
		SidetoneTimeoutMS: 3000,
		RollingWindowS:    60,
		QueueSize:         512,
		DeviceIndex:       2,
		SampleRate:        44100,
		BufferSize:        512,
		ToneFrequency:     700,
		BlockSize:         128,
		Threshold:         0.5,
		Hysteresis:        3,
	}
	if *settings != want {
		t.Errorf("Get() = %+v, want %+v", *settings, want)
	}
}

func TestGet_InvalidSettings(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	writeXDGConfig(t, home, "queue_size: 1\n")

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := Get(); err == nil || !strings.Contains(err.Error(), "queue_size") {
		t.Errorf("Get() error = %v, want queue_size error", err)
	}
}

func TestEnsureConfigExists_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config")

	if err := ensureConfigExists(configPath); err != nil {
		t.Fatalf("ensureConfigExists() error = %v", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	content, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if string(content) != DefaultConfig {
		t.Errorf("config content does not match DefaultConfig")
	}
}

func TestEnsureConfigExists_DoesNotOverwrite(t *testing.T) {
	configPath := t.TempDir()

	configFile := filepath.Join(configPath, "config.yaml")
	existingContent := "existing: true"
	if err := os.WriteFile(configFile, []byte(existingContent), 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	if err := ensureConfigExists(configPath); err != nil {
		t.Fatalf("ensureConfigExists() error = %v", err)
	}

	content, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if string(content) != existingContent {
		t.Errorf("ensureConfigExists() overwrote existing config")
	}
}

func TestEnsureConfigExists_WriteError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("skipping test when running as root")
	}

	configPath := filepath.Join(t.TempDir(), "readonly")
	if err := os.MkdirAll(configPath, 0555); err != nil {
		t.Fatalf("failed to create readonly dir: %v", err)
	}
	defer func() {
		if err := os.Chmod(configPath, 0755); err != nil {
			t.Logf("failed to restore permissions: %v", err)
		}
	}()

	if err := ensureConfigExists(filepath.Join(configPath, "subdir")); err == nil {
		t.Error("ensureConfigExists() should return error for read-only directory")
	}
}

func TestConstants(t *testing.T) {
	if AppName != "cwtutor" {
		t.Errorf("AppName = %q, want %q", AppName, "cwtutor")
	}
	if ConfigType != "yaml" {
		t.Errorf("ConfigType = %q, want %q", ConfigType, "yaml")
	}
}

func TestDefaultConfig_ContainsExpectedKeys(t *testing.T) {
	expectedKeys := []string{
		"profiles_dir", "profile", "log_level", "log_file", "debug",
		"idle_timeout_ms", "poll_interval_ms", "sidetone_timeout_ms",
		"rolling_window_s", "queue_size", "device_index", "sample_rate",
		"buffer_size", "tone_frequency", "block_size", "threshold", "hysteresis",
	}

	for _, key := range expectedKeys {
		if !strings.Contains(DefaultConfig, key+":") {
			t.Errorf("DefaultConfig missing key: %s", key)
		}
	}
}

func TestInit_InvalidConfigFile(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	writeXDGConfig(t, home, "invalid: yaml: content: [[[")

	if err := Init(); err == nil {
		t.Error("Init() should return error for invalid YAML")
	}
}

func TestInit_LoadsDotConfigYaml(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	chdir(t, home)

	dotConfigContent := `profile: carol
sample_rate: 44100
buffer_size: 1024
`
	if err := os.WriteFile(filepath.Join(home, ".config.yaml"), []byte(dotConfigContent), 0644); err != nil {
		t.Fatalf("failed to write .config.yaml: %v", err)
	}

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
	}{
		{"profile", "carol"},
		{"sample_rate", 44100},
		{"buffer_size", 1024},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.expected {
				t.Errorf("viper.Get(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestInit_DotConfigTakesPrecedence(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	chdir(t, home)

	if err := os.WriteFile(filepath.Join(home, ".config.yaml"), []byte("queue_size: 1024"), 0644); err != nil {
		t.Fatalf("failed to write .config.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("queue_size: 512"), 0644); err != nil {
		t.Fatalf("failed to write config.yaml: %v", err)
	}

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if got := viper.GetInt("queue_size"); got != 1024 {
		t.Errorf("viper.GetInt(queue_size) = %d, want 1024 (.config.yaml should take precedence)", got)
	}
}

// Validation tests

func TestSettings_Validate_ValidSettings(t *testing.T) {
	if err := validSettings().Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil for valid settings", err)
	}
}

func TestSettings_Validate_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"empty profile", func(s *Settings) { s.Profile = "" }, true},
		{"bad log level", func(s *Settings) { s.LogLevel = "loud" }, true},
		{"warn log level", func(s *Settings) { s.LogLevel = "warn" }, false},
		{"idle timeout too short", func(s *Settings) { s.IdleTimeoutMS = 99 }, true},
		{"idle timeout minimum", func(s *Settings) { s.IdleTimeoutMS = 100 }, false},
		{"poll interval zero", func(s *Settings) { s.PollIntervalMS = 0 }, true},
		{"poll interval maximum", func(s *Settings) { s.PollIntervalMS = 100 }, false},
		{"sidetone timeout too short", func(s *Settings) { s.SidetoneTimeoutMS = 499 }, true},
		{"rolling window too short", func(s *Settings) { s.RollingWindowS = 4 }, true},
		{"rolling window maximum", func(s *Settings) { s.RollingWindowS = 600 }, false},
		{"queue too small", func(s *Settings) { s.QueueSize = 15 }, true},
		{"sample rate too low", func(s *Settings) { s.SampleRate = 7999 }, true},
		{"sample rate too high", func(s *Settings) { s.SampleRate = 192001 }, true},
		{"buffer too small", func(s *Settings) { s.BufferSize = 32 }, true},
		{"buffer maximum", func(s *Settings) { s.BufferSize = 8192 }, false},
		{"tone too low", func(s *Settings) { s.ToneFrequency = 99 }, true},
		{"tone maximum", func(s *Settings) { s.ToneFrequency = 3000 }, false},
		{"block too small", func(s *Settings) { s.BlockSize = 16 }, true},
		{"block too large", func(s *Settings) { s.BlockSize = 4097 }, true},
		{"threshold negative", func(s *Settings) { s.Threshold = -0.1 }, true},
		{"threshold maximum", func(s *Settings) { s.Threshold = 1.0 }, false},
		{"hysteresis zero", func(s *Settings) { s.Hysteresis = 0 }, true},
		{"hysteresis too high", func(s *Settings) { s.Hysteresis = 51 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_Validate_NyquistFrequency(t *testing.T) {
	tests := []struct {
		name          string
		sampleRate    float64
		toneFrequency float64
		wantErr       bool
	}{
		{"well below nyquist", 48000, 600, false},
		{"near max tone freq", 48000, 3000, false},
		{"at nyquist low sample", 8000, 4000, true},
		{"low sample rate valid", 8000, 3000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			s.SampleRate = tt.sampleRate
			s.ToneFrequency = tt.toneFrequency
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_Validate_MultipleErrors(t *testing.T) {
	s := &Settings{
		LogLevel:      "nope",
		QueueSize:     1,
		SampleRate:    0,
		BufferSize:    10,
		ToneFrequency: 0,
		BlockSize:     10,
		Threshold:     2.0,
		Hysteresis:    0,
	}

	err := s.Validate()
	if err == nil {
		t.Fatal("Validate() should return error for multiple invalid fields")
	}

	errStr := err.Error()
	expectedSubstrings := []string{
		"profile",
		"log_level",
		"idle_timeout_ms",
		"poll_interval_ms",
		"sidetone_timeout_ms",
		"rolling_window_s",
		"queue_size",
		"sample_rate",
		"buffer_size",
		"tone_frequency",
		"block_size",
		"threshold",
		"hysteresis",
	}

	for _, substr := range expectedSubstrings {
		if !strings.Contains(errStr, substr) {
			t.Errorf("Validate() error should mention %q, got: %v", substr, errStr)
		}
	}
}

// validSettings returns a Settings struct with all valid values
func validSettings() *Settings {
	return &Settings{
		ProfilesDir:       "/tmp/profiles",
		Profile:           "default",
		LogLevel:          "info",
		LogFile:           "/tmp/cwtutor.log",
		IdleTimeoutMS:     2000,
		PollIntervalMS:    10,
		SidetoneTimeoutMS: 5000,
		RollingWindowS:    30,
		QueueSize:         256,
		DeviceIndex:       -1,
		SampleRate:        48000,
		BufferSize:        256,
		ToneFrequency:     600,
		BlockSize:         256,
		Threshold:         0.2,
		Hysteresis:        2,
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	resetViper()
	home := isolateHome(t)
	writeXDGConfig(t, home, DefaultConfig)

	if err := Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	changed := make(chan *Settings, 4)
	Watch(nil, func(s *Settings) { changed <- s })

	updated := strings.Replace(DefaultConfig, `log_level: "info"`, `log_level: "debug"`, 1)
	writeXDGConfig(t, home, updated)

	select {
	case s := <-changed:
		if s.LogLevel != "debug" {
			t.Errorf("reloaded LogLevel = %q, want debug", s.LogLevel)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() callback not called after config change")
	}
}
