package app

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GlebZemlyanikin/RowingModel/internal/config"
)

// initLogging routes slog through a rotating log file. In debug mode the
// log is mirrored to stderr at debug level.
func initLogging(conf *config.Config) {
	rotator := &lumberjack.Logger{
		Filename:   conf.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	var w io.Writer = rotator

	level := slog.LevelInfo
	if conf.Debug {
		w = io.MultiWriter(rotator, os.Stderr)
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})

	slog.SetDefault(slog.New(handler))
}
