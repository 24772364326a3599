package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/parser"
)

// loadDefinition reads a workflow definition document from path,
// dispatching on extension: .json for JSON, anything else for YAML.
func loadDefinition(path string) (workflow.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return workflow.Definition{}, fmt.Errorf("read definition file: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return parser.ParseJSON(raw)
	}
	return parser.ParseYAML(raw)
}
