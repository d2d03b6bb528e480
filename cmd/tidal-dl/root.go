package main

import (
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/handiism/tidal-downloader/internal/app"
	"github.com/handiism/tidal-downloader/internal/config"
	"github.com/handiism/tidal-downloader/internal/logging"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "tidal-dl",
		Short:         "Download tracks, albums, playlists and videos, and keep a liked-tracks library in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configPath, "config", "c", "", "Settings file (.json or .toml)")
	flags.BoolVarP(&ctx.verbose, "verbose", "v", false, "Show verbose progress output")
	flags.StringVar(&ctx.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newRefreshCommand(ctx))
	rootCmd.AddCommand(newLikesCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// commandContext lazily loads settings and builds the application once
// per invocation.
type commandContext struct {
	configPath string
	verbose    bool
	logLevel   string

	settingsOnce sync.Once
	settings     *config.Settings
	settingsErr  error

	appOnce sync.Once
	app     *app.App
	appErr  error
}

func (c *commandContext) path() string {
	if p := strings.TrimSpace(c.configPath); p != "" {
		return p
	}
	return config.DefaultPath()
}

func (c *commandContext) ensureSettings() (*config.Settings, error) {
	c.settingsOnce.Do(func() {
		c.settings, c.settingsErr = config.Load(c.path())
		if c.settingsErr == nil && c.logLevel != "" {
			c.settings.LogLevel = c.logLevel
		}
	})
	return c.settings, c.settingsErr
}

// ensureApp builds the application, printing progress events to out.
func (c *commandContext) ensureApp(out io.Writer) (*app.App, error) {
	c.appOnce.Do(func() {
		settings, err := c.ensureSettings()
		if err != nil {
			c.appErr = err
			return
		}
		logger, err := logging.New(logging.Options{Level: settings.LogLevel, Format: settings.LogFormat})
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = app.New(settings, logger, newPrinter(out, c.verbose).print)
	})
	return c.app, c.appErr
}
