package main

import (
	"fmt"
	"os"

	"github.com/tphakala/birdobs/cmd"
	"github.com/tphakala/birdobs/internal/buildinfo"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/logger"
)

// Build information, set via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings, buildinfo.New(version, buildDate))

	err := rootCmd.Execute()

	// flush buffered log output before exiting
	_ = logger.Global().Close()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
