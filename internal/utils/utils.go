package utils

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

func SetLogLevel(level string) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		log.Fatal("Bad error level string")
	}
}

// RetryLogger adapts a logrus logger to the leveled logger interface of
// go-retryablehttp. Key/value pairs become logrus fields.
type RetryLogger struct {
	L *logrus.Logger
}

func (r RetryLogger) entry(kv []interface{}) *logrus.Entry {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return r.L.WithFields(fields)
}

func (r RetryLogger) Error(msg string, kv ...interface{}) { r.entry(kv).Error(msg) }
func (r RetryLogger) Info(msg string, kv ...interface{})  { r.entry(kv).Debug(msg) }
func (r RetryLogger) Debug(msg string, kv ...interface{}) { r.entry(kv).Debug(msg) }
func (r RetryLogger) Warn(msg string, kv ...interface{})  { r.entry(kv).Warn(msg) }

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
