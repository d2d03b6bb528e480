package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/handiism/tidal-downloader/internal/config"
	"github.com/handiism/tidal-downloader/internal/logging"
	"github.com/handiism/tidal-downloader/internal/tui"
)

func main() {
	configFlag := flag.String("config", config.DefaultPath(), "Settings file (.json or .toml)")
	logFlag := flag.String("log", "", "Write logs to this file (discarded when empty)")
	flag.Parse()

	settings, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The alternate screen owns the terminal, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if *logFlag != "" {
		f, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	logger, err := logging.New(logging.Options{Level: settings.LogLevel, Format: settings.LogFormat, Output: out})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := tui.Run(settings, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
