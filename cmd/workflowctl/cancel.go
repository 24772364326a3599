package main

import "github.com/spf13/cobra"

func newCancelCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <instance-id>",
		Short: "Cancel a non-terminal workflow instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closer, err := buildEngine()
			if err != nil {
				return err
			}
			defer closer()

			inst, err := e.Cancel(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			return printJSON(inst.Summary())
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "human-readable cancellation reason")
	return cmd
}
