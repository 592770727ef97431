package cmd

import (
	"errors"
	"fmt"

	"github.com/longkey1/pal/internal/ui"
	"github.com/spf13/cobra"
)

var errDiagnosticsFailed = errors.New("connectivity check failed")

// diagnoseCmd represents the diagnose command
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check network and server reachability",
	Long: `Run the same connectivity check that precedes every voice upload and print the report.

Exits with a non-zero status when the network or the server is unreachable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		report, checkErr := a.checker.Check(cmd.Context())
		fmt.Println(ui.RenderReport(report))
		if checkErr != nil {
			return errDiagnosticsFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}
