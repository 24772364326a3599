// Command workflowctl is a thin CLI over workflow/engine.Engine: start,
// resume, cancel, get, list, and status against a configured store.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("workflowctl failed")
	}
}
