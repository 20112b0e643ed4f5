// Package logging builds the root zerolog logger from configuration.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lguimbarda/fibflow/internal/config"
)

// Field names shared by every log line.
const (
	FieldService = "service"
	FieldRunID   = "run_id"
)

// New creates a logger writing to out. An unknown level falls back to info.
func New(cfg config.LogConfig, out io.Writer, service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == "json" {
		zl = zerolog.New(out)
	} else {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			FormatLevel: func(i any) string {
				lvl := strings.ToUpper(fmt.Sprint(i))
				if len(lvl) > 3 {
					lvl = lvl[:3]
				}
				return "[" + lvl + "]"
			},
		})
	}

	return zl.Level(level).With().
		Timestamp().
		Str(FieldService, service).
		Logger()
}

// WithRun tags l with a fresh run ID and attaches it to ctx, where library
// code finds it through zerolog.Ctx.
func WithRun(ctx context.Context, l zerolog.Logger) (context.Context, string) {
	id := uuid.NewString()
	l = l.With().Str(FieldRunID, id).Logger()
	return l.WithContext(ctx), id
}
