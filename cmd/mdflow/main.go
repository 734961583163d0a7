// Command mdflow is the entrypoint binary: it delegates straight to
// the cmd package, which wires the create/setup/logs subcommands and
// the default agent-execution path.
package main

import (
	"os"

	"github.com/mdflow/mdflow/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
