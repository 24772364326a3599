package main

import "github.com/spf13/cobra"

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <instance-id>",
		Short: "Resume a paused or waiting workflow instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closer, err := buildEngine()
			if err != nil {
				return err
			}
			defer closer()

			inst, err := e.Resume(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(inst.Summary())
		},
	}
}
