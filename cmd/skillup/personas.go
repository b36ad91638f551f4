package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skillup/internal/core"
	"skillup/pkg/schema"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the trainers you can practice with",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := core.LoadPersonas(cfg.PersonasFile)
		if err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("mode")

		out := cmd.OutOrStdout()
		for _, p := range catalog.All() {
			if mode != "" && !p.Supports(schema.Mode(mode)) {
				continue
			}
			fmt.Fprintln(out, renderPersona(p))
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	personasCmd.Flags().String("mode", "", "only trainers for this mode")
}
