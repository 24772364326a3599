package main

import (
	"encoding/json"
	"os"
)

// printJSON writes v to stdout as indented JSON, matching the
// machine-readable output convention CI and scripted callers expect.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
