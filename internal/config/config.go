// Package config loads the runtime configuration of the live daemon.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Synth     SynthConfig     `yaml:"synth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Bus       BusConfig       `yaml:"bus"`
}

type AudioConfig struct {
	SampleRate      int `yaml:"sample_rate"`
	BlockSize       int `yaml:"block_size"`
	ControlCapacity int `yaml:"control_capacity"`
	EventCapacity   int `yaml:"event_capacity"`
	// BufferMs is the output buffer requested from the audio device.
	BufferMs int `yaml:"buffer_ms"`
}

type SynthConfig struct {
	Preset      string `yaml:"preset"`
	Voicebank   string `yaml:"voicebank"`
	LyricFile   string `yaml:"lyric_file"`
	LyricSource string `yaml:"lyric_source"`
}

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Servers        []string `yaml:"servers"`
	Subject        string   `yaml:"subject"`
	Token          string   `yaml:"token"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate:      44100,
			BlockSize:       256,
			ControlCapacity: 10,
			EventCapacity:   256,
			BufferMs:        20,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			PrometheusBind: ":9109",
		},
		Bus: BusConfig{
			Servers:        []string{"nats://localhost:4222"},
			Subject:        "utau",
			ConnectTimeout: 2000,
		},
	}
}

// Load reads the YAML file at path on top of Default, then applies UTAU_*
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideInt(&cfg.Audio.SampleRate, "UTAU_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.BlockSize, "UTAU_AUDIO_BLOCK_SIZE")
	overrideInt(&cfg.Audio.ControlCapacity, "UTAU_AUDIO_CONTROL_CAPACITY")
	overrideInt(&cfg.Audio.EventCapacity, "UTAU_AUDIO_EVENT_CAPACITY")
	overrideInt(&cfg.Audio.BufferMs, "UTAU_AUDIO_BUFFER_MS")
	overrideString(&cfg.Synth.Preset, "UTAU_SYNTH_PRESET")
	overrideString(&cfg.Synth.Voicebank, "UTAU_SYNTH_VOICEBANK")
	overrideString(&cfg.Synth.LyricFile, "UTAU_SYNTH_LYRIC_FILE")
	overrideString(&cfg.Synth.LyricSource, "UTAU_SYNTH_LYRIC_SOURCE")
	overrideString(&cfg.Telemetry.LogLevel, "UTAU_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.PrometheusBind, "UTAU_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "UTAU_BUS_ENABLED")
	overrideStringSlice(&cfg.Bus.Servers, "UTAU_BUS_SERVERS")
	overrideString(&cfg.Bus.Subject, "UTAU_BUS_SUBJECT")
	overrideString(&cfg.Bus.Token, "UTAU_BUS_TOKEN")
	overrideInt(&cfg.Bus.ConnectTimeout, "UTAU_BUS_CONNECT_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.Audio.SampleRate < 8000 || cfg.Audio.SampleRate > 192000 {
		return errors.New("audio.sample_rate must be between 8000 and 192000")
	}
	if cfg.Audio.BlockSize <= 0 {
		return errors.New("audio.block_size must be positive")
	}
	if cfg.Audio.ControlCapacity <= 0 {
		return errors.New("audio.control_capacity must be positive")
	}
	if cfg.Audio.EventCapacity <= 0 {
		return errors.New("audio.event_capacity must be positive")
	}
	if cfg.Audio.BufferMs < 0 {
		return errors.New("audio.buffer_ms must be >= 0")
	}
	switch strings.ToLower(cfg.Synth.LyricSource) {
	case "", "param", "file", "sysex":
	default:
		return errors.New("synth.lyric_source must be one of param|file|sysex")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	if cfg.Bus.Enabled {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when the bus is enabled")
		}
		if cfg.Bus.Subject == "" {
			return errors.New("bus.subject must not be empty when the bus is enabled")
		}
		if cfg.Bus.ConnectTimeout <= 0 {
			return errors.New("bus.connect_timeout_ms must be positive")
		}
	}
	return nil
}

// NewLogger returns a text logger writing to stderr at level.
func NewLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: LogLevel(level)}))
}

// LogLevel maps debug|info|warn|error to a slog level; anything else is info.
func LogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
