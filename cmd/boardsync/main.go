// Command boardsync merges, validates and stores collaborative whiteboard
// scenes.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/boardsync/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
