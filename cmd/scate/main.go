// Command scate supervises a SuperCollider language interpreter.
package main

import (
	"os"

	"github.com/dshills/scate/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
