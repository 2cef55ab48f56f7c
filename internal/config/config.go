package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

type Config struct {
	OutputDir       string        `json:"output_dir"`
	Format          string        `json:"format"` // "wav", "flac" or "mp3"
	SilenceTrim     bool          `json:"silence_trim"`
	MaxDurationSecs int           `json:"max_duration_secs"` // 0 means no limit
	NotifyOnRecord  bool          `json:"notify_on_record"` // announce in the channel when voice recording starts
	LogLevel        string        `json:"log_level"`
	Audio           AudioConfig   `json:"audio"`
	Discord         DiscordConfig `json:"discord"`
}

type AudioConfig struct {
	Device      string `json:"device"`       // substring match against device names
	ProcessName string `json:"process_name"` // app whose audio to capture, windows only
}

type DiscordConfig struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := configPath()

	cfg := &Config{
		OutputDir:       DefaultOutputDir(),
		Format:          "wav",
		SilenceTrim:     false,
		MaxDurationSecs: 0,
		NotifyOnRecord:  true,
		LogLevel:        "info",
		Audio: AudioConfig{
			Device:      "",
			ProcessName: "Discord",
		},
	}

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "discrec", "config.json")
}

// DefaultOutputDir returns the platform-specific recordings directory.
func DefaultOutputDir() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, "discrec", "recordings")
}
