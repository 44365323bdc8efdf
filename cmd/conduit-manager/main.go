package main

import (
	"fmt"
	"os"

	"conduit-manager/internal/app"
)

// version is set via -ldflags "-X main.version=v1.2.3".
var version = "dev"

func main() {
	if err := app.Run(version); err != nil {
		fmt.Fprintf(os.Stderr, "conduit-manager: %v\n", err)
		os.Exit(1)
	}
}
