// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package log

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

const (
	slogFields      ctxKey = "slog_fields"
	logLevelDefault        = slog.LevelDebug

	debug = "debug"
	warn  = "warn"
	info  = "info"
	errs  = "error"

	defaultFileMaxSizeMB  = 100
	defaultFileMaxBackups = 3
	defaultFileMaxAgeDays = 28
)

type contextHandler struct {
	slog.Handler
}

// Handle adds contextual attributes to the Record before calling the underlying handler
func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		for _, v := range attrs {
			r.AddAttrs(v)
		}
	}

	return h.Handler.Handle(ctx, r)
}

// WithAttrs keeps the context handler in front of the derived handler
func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

// WithGroup keeps the context handler in front of the derived handler
func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// AppendCtx adds an slog attribute to the provided context so that it will be
// included in any Record created with such context
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	if v, ok := parent.Value(slogFields).([]slog.Attr); ok {
		// copy so sibling contexts never share a backing array
		attrs := make([]slog.Attr, 0, len(v)+1)
		attrs = append(attrs, v...)
		attrs = append(attrs, attr)
		return context.WithValue(parent, slogFields, attrs)
	}

	v := []slog.Attr{}
	v = append(v, attr)
	return context.WithValue(parent, slogFields, v)
}

// InitStructureLogConfig sets the structured log behavior and returns a function
// releasing the log file, if one was configured.
func InitStructureLogConfig() func() error {

	logOptions := &slog.HandlerOptions{}
	var (
		h      slog.Handler
		writer io.Writer = os.Stdout
	)
	cleanup := func() error { return nil }

	configurations := map[string]func(){
		"options-logLevel": func() {
			logLevel := os.Getenv("LOG_LEVEL")
			slog.Info("log config",
				"logLevel", logLevel,
			)
			switch logLevel {
			case debug:
				logOptions.Level = slog.LevelDebug
			case warn:
				logOptions.Level = slog.LevelWarn
			case info:
				logOptions.Level = slog.LevelInfo
			case errs:
				logOptions.Level = slog.LevelError
			default:
				logOptions.Level = logLevelDefault
			}
		},
		"options-addSource": func() {

			addSourceBool := false

			addSource := os.Getenv("LOG_ADD_SOURCE")
			if addSource == "true" || addSource == "false" {
				addSourceBool = addSource == "true"
			}
			slog.Info("log config",
				"LOG_ADD_SOURCE", addSourceBool,
			)
			logOptions.AddSource = addSourceBool
		},
		"output-file": func() {
			logFile := os.Getenv("LOG_FILE")
			if logFile == "" {
				return
			}
			if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
				slog.Error("unable to create log directory, logging to stdout only",
					"LOG_FILE", logFile,
					"error", err,
				)
				return
			}
			lj := &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    envInt("LOG_FILE_MAX_SIZE_MB", defaultFileMaxSizeMB),
				MaxBackups: envInt("LOG_FILE_MAX_BACKUPS", defaultFileMaxBackups),
				MaxAge:     envInt("LOG_FILE_MAX_AGE_DAYS", defaultFileMaxAgeDays),
				Compress:   true,
				LocalTime:  true,
			}
			slog.Info("log config",
				"LOG_FILE", logFile,
				"max_size_mb", lj.MaxSize,
			)
			writer = io.MultiWriter(os.Stdout, lj)
			cleanup = lj.Close
		},
	}

	for name, f := range configurations {
		slog.Info("setting logging configuration",
			"name", name,
		)
		f()
	}
	h = slog.NewJSONHandler(writer, logOptions)
	log.SetFlags(log.Llongfile)
	logger := contextHandler{h}
	slog.SetDefault(slog.New(logger))

	return cleanup
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
