package logger

import (
	"log/slog"
	"os"

	"go.uber.org/zap"
)

var (
	def *slog.Logger
	zl  *zap.Logger
)

// Init настраивает slog по умолчанию в зависимости от среды
func Init(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "app"
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h, zl = newZapHandler(cfg, out)
	default:
		h, zl = newStdHandler(cfg, out), nil
	}

	h = traceHandler{h.WithAttrs(commonAttr(cfg))}

	def = slog.New(h)
	slog.SetDefault(def)
	return def
}

func L() *slog.Logger {
	if def != nil {
		return def
	}
	return Init(Config{})
}

// Sync сбрасывает буферы zap; для std — no-op.
func Sync() error {
	if zl == nil {
		return nil
	}
	return zl.Sync()
}
