package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"skillup/internal/core"
	"skillup/internal/playback"
	"skillup/pkg/schema"
)

var practiceCmd = &cobra.Command{
	Use:   "practice <debate|interview|speech>",
	Short: "Practice in the terminal",
	Long: `Run a practice session in the terminal. Each line you type is one turn.

Commands inside the session:
  /open    ask the trainer to open (or fetch the speech script again)
  /script  listen to the speech script
  /end     finish and get feedback

Examples:
  skillup practice debate --topic "Should homework be banned?"
  skillup practice interview --context "Backend engineer, 5 years Go"
  skillup practice speech --topic "The value of kindness" --trainer "Poorvi Ai"`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"debate", "interview", "speech"},
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := schema.ParseMode(args[0])
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		user, _ := flags.GetString("user")
		topic, _ := flags.GetString("topic")
		practiceContext, _ := flags.GetString("context")
		trainer, _ := flags.GetString("trainer")
		wpm, _ := flags.GetInt("wpm")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		lc, store, err := buildLifecycle(ctx, cfg, "skillup-practice")
		if err != nil {
			return err
		}
		defer store.Close()

		synth, err := buildSynthesizer(cfg, wpm)
		if err != nil {
			return err
		}

		session := core.NewCLISession(lc, core.StartSessionInput{
			UserID:      user,
			Mode:        mode,
			Topic:       topic,
			Context:     practiceContext,
			TrainerName: trainer,
			Playback:    playback.NewCoordinator(synth, playback.NewSilentPlayer()),
		}, cmd.InOrStdin(), cmd.OutOrStdout())
		session.Render = termRenderer{}

		if _, err := session.Run(ctx); err != nil {
			return fmt.Errorf("practice session failed: %w", err)
		}
		return nil
	},
}

func init() {
	flags := practiceCmd.Flags()
	flags.String("user", defaultUser(), "user id the feedback is stored under")
	flags.String("topic", "", "debate motion, interview focus or speech topic")
	flags.String("context", "", "debate area, or job description and resume for interviews")
	flags.String("trainer", "", "trainer name (default: first trainer for the mode)")
	flags.Int("wpm", 900, "pace of silent trainer speech when no synthesizer key is set")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
