package main

import "github.com/spf13/cobra"

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <instance-id>",
		Short: "Print the full state of a workflow instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closer, err := buildEngine()
			if err != nil {
				return err
			}
			defer closer()

			inst, err := e.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(inst)
		},
	}
}
