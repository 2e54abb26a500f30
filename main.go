// file: main.go
// version: 2.0.0
// guid: a86eb149-6fa3-4b79-90d0-27fbef9214a4

package main

import (
	"fmt"
	"os"

	"github.com/jdfalk/cpe-resolver/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
