package main

import (
	"github.com/spf13/cobra"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/engine"
)

func newListCmd() *cobra.Command {
	var state, name string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflow instances, optionally filtered by state or name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closer, err := buildEngine()
			if err != nil {
				return err
			}
			defer closer()

			filter := engine.ListFilter{
				State:  workflow.State(state),
				Name:   name,
				Limit:  limit,
				Offset: offset,
			}
			summaries, err := e.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(summaries)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "filter by instance state (e.g. RUNNING, COMPLETED)")
	cmd.Flags().StringVar(&name, "name", "", "filter by workflow definition name")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of instances to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of instances to skip")
	return cmd
}
