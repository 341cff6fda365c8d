package logger

import (
	"io"
	"log/slog"
)

func newStdHandler(cfg Config, out io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     cfg.level(),
		AddSource: cfg.AddSource,
	}
	// dev читают глазами, stage/prod — собирают в агрегатор
	if cfg.Env == EnvDev {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}
