package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultGreeting is shown as the first assistant message of a fresh conversation
const DefaultGreeting = "Hi! I'm your assistant. Type a message or use /record to talk."

// Config holds the configuration for the assistant client
type Config struct {
	APIBaseURL         string `toml:"api_base_url" mapstructure:"api_base_url"`
	APIToken           string `toml:"api_token" mapstructure:"api_token"`
	Greeting           string `toml:"greeting" mapstructure:"greeting"`
	DataDir            string `toml:"data_dir" mapstructure:"data_dir"`
	DiagnosticsTimeout string `toml:"diagnostics_timeout" mapstructure:"diagnostics_timeout"` // Go duration, e.g. "3s"
	LogLevel           string `toml:"log_level" mapstructure:"log_level"`
	LogFile            string `toml:"log_file" mapstructure:"log_file"` // Empty = no log file
	AudioDevice        string `toml:"audio_device" mapstructure:"audio_device"` // Empty = platform default
	FFmpegPath         string `toml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	FFplayPath         string `toml:"ffplay_path" mapstructure:"ffplay_path"`
	DevserverAddr      string `toml:"devserver_addr" mapstructure:"devserver_addr"`
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig(dataDir string) *Config {
	return &Config{
		APIBaseURL:         "http://127.0.0.1:8787",
		APIToken:           "$PAL_API_KEY", // Default to env var
		Greeting:           DefaultGreeting,
		DataDir:            dataDir,
		DiagnosticsTimeout: "3s",
		LogLevel:           "info",
		LogFile:            filepath.Join(dataDir, "pal.log"),
		AudioDevice:        "",
		FFmpegPath:         "ffmpeg",
		FFplayPath:         "ffplay",
		DevserverAddr:      "127.0.0.1:8787",
	}
}

// SetDefaults registers the default values with viper
func SetDefaults(v *viper.Viper, dataDir string) {
	d := NewDefaultConfig(dataDir)
	v.SetDefault("api_base_url", d.APIBaseURL)
	v.SetDefault("api_token", d.APIToken)
	v.SetDefault("greeting", d.Greeting)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("diagnostics_timeout", d.DiagnosticsTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("audio_device", d.AudioDevice)
	v.SetDefault("ffmpeg_path", d.FFmpegPath)
	v.SetDefault("ffplay_path", d.FFplayPath)
	v.SetDefault("devserver_addr", d.DevserverAddr)
}

// LoadConfig loads configuration from viper
func LoadConfig(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	// Expand environment variable references
	for _, field := range []*string{&config.APIBaseURL, &config.APIToken} {
		expanded, err := expandEnvVar(*field)
		if err != nil {
			return nil, err
		}
		*field = expanded
	}

	// Convert directories to absolute paths
	if config.DataDir != "" {
		absPath, err := ResolvePath(v, config.DataDir)
		if err != nil {
			return nil, fmt.Errorf("error resolving data directory path '%s': %v", config.DataDir, err)
		}
		config.DataDir = absPath
	}
	if config.LogFile != "" {
		absPath, err := ResolvePath(v, config.LogFile)
		if err != nil {
			return nil, fmt.Errorf("error resolving log file path '%s': %v", config.LogFile, err)
		}
		config.LogFile = absPath
	}

	return config, nil
}

// GetAPIBaseURL returns the backend base URL
// Environment variables are already expanded during LoadConfig()
func (c *Config) GetAPIBaseURL() (string, error) {
	baseURL := strings.TrimSpace(c.APIBaseURL)
	if baseURL == "" {
		return "", fmt.Errorf("API base URL is not configured. Set it in config file (api_base_url) or environment variable (PAL_API_BASE_URL)")
	}
	return strings.TrimRight(baseURL, "/"), nil
}

// GetDiagnosticsTimeout parses the diagnostics timeout, falling back to fallback when unset
func (c *Config) GetDiagnosticsTimeout(fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(c.DiagnosticsTimeout) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(c.DiagnosticsTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid diagnostics_timeout %q: %w", c.DiagnosticsTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("diagnostics_timeout must be positive, got %s", d)
	}
	return d, nil
}
