package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Leveled logger used by the auth service, backed by zerolog.
// - Debug/Info/Warn/Error/Fatal variants and Init(level)
// - GinLogger replaces gin.Logger() with structured request lines

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stdout, zerolog.InfoLevel)
)

func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "multimart-auth").Logger()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	zerolog.TimeFieldFormat = time.RFC3339
	logger = logger.Level(parseLevel(l))
}

// SetOutput redirects log output, keeping the current level.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, logger.GetLevel())
}

func parseLevel(l string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func Debugf(format string, v ...interface{}) { current().Debug().Msgf(format, v...) }
func Infof(format string, v ...interface{})  { current().Info().Msgf(format, v...) }
func Warnf(format string, v ...interface{})  { current().Warn().Msgf(format, v...) }
func Errorf(format string, v ...interface{}) { current().Error().Msgf(format, v...) }

// Fatalf logs and exits with status 1 regardless of level.
func Fatalf(format string, v ...interface{}) {
	l := current()
	l.WithLevel(zerolog.FatalLevel).Msgf(format, v...)
	os.Exit(1)
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// Event returns a structured event at info level for callers that want fields.
func Event() *zerolog.Event { return current().Info() }

// LevelString returns the current level as text.
func LevelString() string {
	switch current().GetLevel() {
	case zerolog.DebugLevel:
		return "debug"
	case zerolog.WarnLevel:
		return "warn"
	case zerolog.ErrorLevel:
		return "error"
	case zerolog.FatalLevel:
		return "fatal"
	}
	return "info"
}

// GinLogger logs one line per request.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		ev := current().Info()
		if c.Writer.Status() >= 500 {
			ev = current().Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size()).
			Msg(fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path))
	}
}
