package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skillup/internal/core"
)

var (
	cfg    *core.Config
	logger core.Logger
)

var rootCmd = &cobra.Command{
	Use:   "skillup",
	Short: "Practice debates, interviews and speeches with an AI trainer",
	Long: `skillup runs communication practice sessions against an AI trainer.

Each session alternates between your spoken (or typed) turns and the
trainer's replies, and ends with a scored feedback report.

Environment:
  LLM_BACKEND        openrouter, gemini, genkit or offline
  OPENROUTER_API_KEY required for openrouter
  GEMINI_API_KEY     required for gemini
  MURF_API_KEY       enables spoken replies
  STORAGE_BACKEND    memory, file or sqlite
  STORAGE_PATH       directory (file) or database file (sqlite)`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("llm-backend", "", "text generation backend: openrouter, gemini, genkit, offline")
	flags.String("storage", "", "feedback storage: memory, file, sqlite")
	flags.String("storage-path", "", "feedback storage location")
	flags.String("personas", "", "YAML trainer catalog (default: built-in)")
	flags.Duration("settle-delay", 0, "wait for trailing recognition results after capture stops")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(personasCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the environment, applies flag overrides and sets up
// logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := core.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlags(cmd, loaded); err != nil {
		return err
	}

	cfg = loaded
	logger = core.NewLogger(cfg.LogLevel)
	core.SetDefault(cfg.LogLevel)
	return nil
}

func applyFlags(cmd *cobra.Command, c *core.Config) error {
	flags := cmd.Flags()
	stringFlags := map[string]*string{
		"log-level":    &c.LogLevel,
		"llm-backend":  &c.LLMBackend,
		"storage":      &c.StorageBackend,
		"storage-path": &c.StoragePath,
		"personas":     &c.PersonasFile,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("failed to read '%s' flag: %w", name, err)
		}
		*dst = v
	}

	if flags.Changed("settle-delay") {
		d, err := flags.GetDuration("settle-delay")
		if err != nil {
			return fmt.Errorf("failed to read 'settle-delay' flag: %w", err)
		}
		c.SettleDelay = d
	}
	return nil
}
