package main

import (
	"fmt"
	"io"
	"os"

	"github.com/taigrr/sunlit/pkg/config"
	"github.com/taigrr/sunlit/pkg/log"
)

var logger = log.New("sunlit")

// setupLogging applies the configured level, raised by -v (info) and -vv
// (debug). With a log file set, output is appended there and the returned
// closer must be called on exit.
func setupLogging(cfg config.Config, opts *options) (io.Closer, error) {
	log.SetLevel(verbosityLevel(cfg.Level(), opts.verbosity))

	if opts.logFile == "" {
		return io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetSink(f)
	return f, nil
}

// verbosityLevel returns base raised by the -v count. The flag never makes
// logging quieter than base.
func verbosityLevel(base log.Level, verbosity int) log.Level {
	switch {
	case verbosity >= 2:
		return min(base, log.Debug)
	case verbosity == 1:
		return min(base, log.Info)
	}
	return base
}
