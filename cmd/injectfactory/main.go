// cmd/injectfactory/main.go
package main

import (
	"os"
)

var (
	// Version information (set by ldflags during build).
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
