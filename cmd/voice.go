package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// voiceCmd represents the voice command
var voiceCmd = &cobra.Command{
	Use:       "voice [on|off]",
	Short:     "Show or set spoken replies",
	Long:      `Show or set whether assistant replies are played aloud. The setting is kept across sessions.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			enabled, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			if err := a.prefs.SetVoiceOutputEnabled(enabled); err != nil {
				return fmt.Errorf("saving voice setting: %w", err)
			}
		}

		enabled, err := a.prefs.VoiceOutputEnabled()
		if err != nil {
			return fmt.Errorf("reading voice setting: %w", err)
		}
		fmt.Printf("Voice replies: %s\n", onOff(enabled))
		return nil
	},
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid value %q: use on or off", s)
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func init() {
	rootCmd.AddCommand(voiceCmd)
}
