package telemetry

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

type SlogOptions struct {
	Verbose bool
	// rotating json log file, skipped when empty
	LogFile    string
	MaxSizeMB  int
	MaxBackups int
	Console    io.Writer
}

// InitSlog installs the default logger: colored output on the console and,
// if LogFile is set, json lines into a size-rotated file. The returned
// closer flushes the file.
func InitSlog(opts SlogOptions) io.Closer {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	handlers := []slog.Handler{
		tint.NewHandler(console, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	}

	var closer io.Closer = nopCloser{}
	if opts.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		if file.MaxSize <= 0 {
			file.MaxSize = 10
		}
		if file.MaxBackups <= 0 {
			file.MaxBackups = 5
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		closer = file
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
