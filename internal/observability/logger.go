package observability

import (
	"fmt"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// NewLogger builds a zap logger. format "console" selects the development
// encoder; anything else produces JSON. An unparseable level is an error.
func NewLogger(level, format string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if strings.EqualFold(format, FormatConsole) {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// ForRequest returns base annotated with the request ID assigned by chi's
// RequestID middleware, when there is one.
func ForRequest(base *zap.Logger, r *http.Request) *zap.Logger {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return base.With(zap.String("request_id", id))
	}
	return base
}
