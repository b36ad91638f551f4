package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"skillup/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the practice websocket and feedback API",
	Long: `Serve practice sessions over a websocket at /ws/practice and stored
feedback at /api/feedback.

The browser runs speech recognition and audio playback; the server runs the
session state machine, the trainer and feedback generation.

Example:
  LLM_BACKEND=offline skillup serve --addr :8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return fmt.Errorf("failed to read 'addr' flag: %w", err)
		}
		if addr == "" {
			addr = cfg.ListenAddr
		}
		origins, err := cmd.Flags().GetStringSlice("allowed-origin")
		if err != nil {
			return fmt.Errorf("failed to read 'allowed-origin' flag: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		lc, store, err := buildLifecycle(ctx, cfg, "skillup-serve")
		if err != nil {
			return err
		}
		defer store.Close()

		synth, err := buildSynthesizer(cfg, 0)
		if err != nil {
			return err
		}

		srv := server.New(lc, synth, logger, server.Options{AllowedOrigins: origins})
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: LISTEN_ADDR or :8080)")
	serveCmd.Flags().StringSlice("allowed-origin", nil, "websocket origins to accept (default: any)")
}
