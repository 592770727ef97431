package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/longkey1/pal/internal/devserver"
	"github.com/spf13/cobra"
)

var (
	devserverAddr       string
	devserverToken      string
	devserverSynthesize bool
)

// devserverCmd represents the devserver command
var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local assistant backend",
	Long: `Run an in-memory assistant backend for local development.

It echoes text messages, accepts voice uploads and keeps conversations until it exits.
Point api_base_url at its address to chat against it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		addr := devserverAddr
		if addr == "" {
			addr = a.cfg.DevserverAddr
		}

		srv := devserver.New(devserver.Options{
			Token:      devserverToken,
			Synthesize: devserverSynthesize,
			Logger:     a.log.With().Str("component", "devserver").Logger(),
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "Listening on http://%s\n", addr)
		if err := srv.Run(ctx, addr); err != nil {
			return fmt.Errorf("running devserver: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devserverCmd)
	devserverCmd.Flags().StringVar(&devserverAddr, "addr", "", "Listen address (default from config devserver_addr)")
	devserverCmd.Flags().StringVar(&devserverToken, "token", "", "Require this bearer token on every route except /health")
	devserverCmd.Flags().BoolVar(&devserverSynthesize, "synthesize", false, "Attach a synthesized tone to every reply")
}
