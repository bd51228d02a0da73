// deployctl checks and runs Deno Deploy scripts locally, restarting them
// when their local dependencies change.
package main

import (
	"os"

	"github.com/hupe1980/deployctl/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
