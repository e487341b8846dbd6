package logger

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ReqLoggerKey is the gin context key holding the request-scoped logger.
const ReqLoggerKey = "reqLogger"

// New builds the process logger. Production gets JSON with sampling, development a
// colored console encoder.
func New(environment, level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.DisableStacktrace = true
		cfg.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	if format == "json" {
		cfg.Encoding = "json"
	} else {
		cfg.Encoding = "console"
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build(zap.AddCaller())
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Middleware stores a request-scoped sugared logger in the gin context.
func Middleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ReqLoggerKey, base.With("method", c.Request.Method, "path", c.FullPath()))
		c.Next()
	}
}

// FromContext returns the request-scoped logger, or a no-op logger when none is set.
func FromContext(c *gin.Context) *zap.SugaredLogger {
	if c != nil {
		if v, ok := c.Get(ReqLoggerKey); ok {
			if l, ok := v.(*zap.SugaredLogger); ok {
				return l
			}
		}
	}
	return zap.NewNop().Sugar()
}

// Enrich attaches extra key/value pairs to the request-scoped logger.
func Enrich(c *gin.Context, keysAndValues ...interface{}) {
	c.Set(ReqLoggerKey, FromContext(c).With(keysAndValues...))
}
