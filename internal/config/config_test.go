package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("PAL_TEST_TOKEN", "secret")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "literal", input: "plain-token", want: "plain-token"},
		{name: "dollar form", input: "$PAL_TEST_TOKEN", want: "secret"},
		{name: "braced form", input: "${PAL_TEST_TOKEN}", want: "secret"},
		{name: "unset variable", input: "$PAL_TEST_UNSET_VARIABLE", want: ""},
		{name: "unterminated brace", input: "${PAL_TEST_TOKEN", wantErr: true},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVar(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandEnvVar(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expandEnvVar(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PAL_API_KEY", "from-env")
	dataDir := t.TempDir()

	v := viper.New()
	SetDefaults(v, dataDir)

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.APIToken != "from-env" {
		t.Errorf("APIToken = %q, want %q", cfg.APIToken, "from-env")
	}
	if cfg.DataDir != dataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dataDir)
	}
	if cfg.Greeting != DefaultGreeting {
		t.Errorf("Greeting = %q, want default", cfg.Greeting)
	}
	timeout, err := cfg.GetDiagnosticsTimeout(time.Second)
	if err != nil || timeout != 3*time.Second {
		t.Errorf("GetDiagnosticsTimeout() = %v, %v, want 3s", timeout, err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.toml")
	content := `api_base_url = "https://assistant.example.com/"
api_token = "literal"
data_dir = "data"
diagnostics_timeout = "750ms"
`
	if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	SetDefaults(v, "/unused")
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := LoadConfig(v)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	baseURL, err := cfg.GetAPIBaseURL()
	if err != nil {
		t.Fatalf("GetAPIBaseURL() error = %v", err)
	}
	if baseURL != "https://assistant.example.com" {
		t.Errorf("GetAPIBaseURL() = %q", baseURL)
	}
	if cfg.DataDir != filepath.Join(dir, "data") {
		t.Errorf("DataDir = %q, want relative to config file", cfg.DataDir)
	}
	timeout, err := cfg.GetDiagnosticsTimeout(time.Second)
	if err != nil || timeout != 750*time.Millisecond {
		t.Errorf("GetDiagnosticsTimeout() = %v, %v", timeout, err)
	}
}

func TestGetAPIBaseURLMissing(t *testing.T) {
	cfg := &Config{APIBaseURL: "  "}
	if _, err := cfg.GetAPIBaseURL(); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestGetDiagnosticsTimeout(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{name: "unset uses fallback", value: "", want: 2 * time.Second},
		{name: "seconds", value: "5s", want: 5 * time.Second},
		{name: "garbage", value: "soon", wantErr: true},
		{name: "negative", value: "-1s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{DiagnosticsTimeout: tt.value}
			got, err := cfg.GetDiagnosticsTimeout(2 * time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultConfigEncodesToTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := toml.NewEncoder(f).Encode(NewDefaultConfig("/var/lib/pal")); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	f.Close()

	var decoded Config
	if _, err := toml.DecodeFile(path, &decoded); err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if decoded.APIToken != "$PAL_API_KEY" {
		t.Errorf("APIToken = %q, env reference must be written unexpanded", decoded.APIToken)
	}
	if decoded.DevserverAddr != "127.0.0.1:8787" {
		t.Errorf("DevserverAddr = %q", decoded.DevserverAddr)
	}
}
