package main

import (
	"github.com/diagimmo/suiviclientpro/cmd"
)

// version is set by goreleaser at build time
var version = "dev"

func main() {
	// Set the version from build-time variable
	cmd.SetVersion(version)

	// Execute the root command
	cmd.Execute()
}
