// Command viewflow drives view-models from the terminal: it replays YAML
// scenarios of inputs against a screen and prints every output emission.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
