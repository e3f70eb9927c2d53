// Copyright (c) 2026 ToeiRei
// cpcm - control-panel domain cache
// This source code is licensed under the MIT license found in the LICENSE file.

// Command cpcm keeps a local cache of the domains hosted on a fleet of
// WHM/cPanel servers and lets operators search it.
//
// Usage:
//
//	go run . [flags]
//	./cpcm [command] [flags]
//
// See --help for the available commands.
package main

import (
	"os"

	"github.com/toeirei/cpcm/ui/cli"
)

func main() {
	// cobra already printed the error
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
