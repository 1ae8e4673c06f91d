package main

import (
	"github.com/spf13/cobra"
)

func newGUICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop player",
		Long: "Open the desktop player window. Without --item the last opened item is\n" +
			"restored; File > Open Item switches items at any time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			application, err := ctx.newApplication(false)
			if err != nil {
				return err
			}
			defer func() { _ = application.Shutdown() }()

			return application.RunGUI(runCtx)
		},
	}
}
