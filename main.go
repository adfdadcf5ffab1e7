// autopic – natural-language assistant for the AutoPic fleet database.
//
// Entry point: initializes the Cobra root command, which launches the chat
// TUI when no subcommand is given.
package main

import (
	"os"

	"github.com/equipoapa2-hub/autopic/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
