// Command stagectl exercises staging transfers against the registered
// drivers: it lists adapters, runs full-extent round trips and replays
// sub-rectangle copy scenarios from TOML files.
package main

import (
	"os"

	"github.com/gogpu/staging/cmd/stagectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
