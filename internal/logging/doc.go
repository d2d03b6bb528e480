// Package logging builds the slog loggers shared by the commands.
//
//	logger, err := logging.New(logging.Options{Level: "debug", Format: "json"})
//
// "console" (the default) renders key=value lines, "json" one object per
// line. Debug level also records the source position.
package logging
