// Package testlog configures logging for package tests.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/cslink/internal/logging"
)

// Start applies the test logging profile and announces the test by name.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Debug().Str("test", t.Name()).Msg("starting")
}
