package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/longkey1/pal/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file, .env and environment variables.

If a field name is specified, only that field's value is displayed.

Examples:
  pal config                  # Show all configuration
  pal config api_base_url     # Show only the backend URL
  pal config api_token        # Show only the (masked) API token
  pal config data_dir         # Show only the data directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(viper.GetViper())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fields := configFields(cfg)

		// If a field is specified, show only that field
		if len(args) > 0 {
			field := strings.ToLower(args[0])
			if field == "configfile" {
				fmt.Println(viper.ConfigFileUsed())
				return nil
			}
			value, ok := fields[field]
			if !ok {
				return fmt.Errorf("unknown field: %s\nAvailable fields: configfile, %s", args[0], strings.Join(fieldNames(fields), ", "))
			}
			fmt.Println(value)
			return nil
		}

		printConfig(os.Stdout, viper.ConfigFileUsed(), fields)
		return nil
	},
}

// configFields maps config keys to their displayed values
func configFields(cfg *config.Config) map[string]string {
	return map[string]string{
		"api_base_url":        cfg.APIBaseURL,
		"api_token":           maskToken(cfg.APIToken),
		"greeting":            cfg.Greeting,
		"data_dir":            cfg.DataDir,
		"diagnostics_timeout": cfg.DiagnosticsTimeout,
		"log_level":           cfg.LogLevel,
		"log_file":            cfg.LogFile,
		"audio_device":        cfg.AudioDevice,
		"ffmpeg_path":         cfg.FFmpegPath,
		"ffplay_path":         cfg.FFplayPath,
		"devserver_addr":      cfg.DevserverAddr,
	}
}

func fieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printConfig(out io.Writer, configFile string, fields map[string]string) {
	fmt.Fprintf(out, "configfile: %s\n", configFile)
	for _, name := range fieldNames(fields) {
		value := fields[name]
		if value == "" {
			value = "(default)"
		}
		fmt.Fprintf(out, "%s: %s\n", name, value)
	}
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
