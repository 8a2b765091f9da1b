// Command taskdb inspects and maintains the local task database.
package main

import (
	"os"

	"github.com/rftsngl/To-Do-List-Mobile-Application/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
