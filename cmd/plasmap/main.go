// Command plasmap parses GenBank plasmid files, stores them and renders
// linear and circular maps.
package main

import (
	"fmt"
	"os"
)

var exitFunc = os.Exit

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exitFunc(1)
	}
}
