package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	var defPath, dataPath string

	cmd := &cobra.Command{
		Use:   "start <instance-id>",
		Short: "Start a new workflow instance from a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if defPath == "" {
				return fmt.Errorf("--definition is required")
			}
			def, err := loadDefinition(defPath)
			if err != nil {
				return err
			}

			var initialData map[string]interface{}
			if dataPath != "" {
				raw, err := os.ReadFile(dataPath)
				if err != nil {
					return fmt.Errorf("read data file: %w", err)
				}
				if err := json.Unmarshal(raw, &initialData); err != nil {
					return fmt.Errorf("parse data file: %w", err)
				}
			}

			e, closer, err := buildEngine()
			if err != nil {
				return err
			}
			defer closer()

			inst, err := e.Start(cmd.Context(), args[0], def, initialData)
			if err != nil {
				return err
			}
			return printJSON(inst.Summary())
		},
	}

	cmd.Flags().StringVarP(&defPath, "definition", "f", "", "path to a workflow definition file (YAML or JSON)")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "path to a JSON file of initial workflow data")
	return cmd
}
