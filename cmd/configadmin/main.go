// Command configadmin serves the functional configuration console and
// exposes the same operations from the terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(newApp(os.Stdout, os.Stderr)).Execute(); err != nil {
		os.Exit(1)
	}
}
