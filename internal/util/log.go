// Package util holds small shared helpers such as logger construction.
package util

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a stdout zerolog logger at the requested level, falling back to info.
func NewLogger(level string) zerolog.Logger {
	return newLogger(level, os.Stdout)
}

// NewFileLogger builds a logger that writes to stdout and a size-rotated file.
func NewFileLogger(level, path string) zerolog.Logger {
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    2, // megabytes
		MaxBackups: 5,
	}
	return newLogger(level, io.MultiWriter(os.Stdout, rotated))
}

func newLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
