// Command stationlink serves game server status and Discord supporter
// lookups over HTTP, and queries both from the command line.
package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/stationlink/stationlink/internal/cmd"
	"github.com/stationlink/stationlink/internal/server/handlers"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	handlers.SetVersionInfo(version, commit, buildDate)

	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "Command failed", err)
	}
}
