package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(buf *bytes.Buffer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buf),
		zapcore.DebugLevel,
	)

	return zap.New(core)
}

func TestProperty_LogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all log entries are in structured JSON format", prop.ForAll(
		func(message string, level string) bool {
			var buf bytes.Buffer
			logger := newBufferLogger(&buf)
			defer logger.Sync()

			switch level {
			case "debug":
				logger.Debug(message)
			case "info":
				logger.Info(message)
			case "warn":
				logger.Warn(message)
			case "error":
				logger.Error(message)
			default:
				logger.Info(message)
			}

			// Verify output is valid JSON
			var logEntry map[string]interface{}
			err := json.Unmarshal(buf.Bytes(), &logEntry)
			if err != nil {
				return false
			}

			// Verify required fields exist
			if _, ok := logEntry["level"]; !ok {
				return false
			}
			if _, ok := logEntry["timestamp"]; !ok {
				return false
			}
			if _, ok := logEntry["message"]; !ok {
				return false
			}

			// Verify message matches
			if logEntry["message"] != message {
				return false
			}

			return true
		},
		gen.AnyString(),
		gen.OneConstOf("debug", "info", "warn", "error"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test that error logs carry structured context fields
func TestProperty_ErrorLogsIncludeContext(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("error logs include context information", prop.ForAll(
		func(message string, errorMsg string) bool {
			var buf bytes.Buffer
			logger := newBufferLogger(&buf)
			defer logger.Sync()

			logger.Error(message, zap.String("error", errorMsg))

			var logEntry map[string]interface{}
			json.Unmarshal(buf.Bytes(), &logEntry)

			// Verify error field exists
			if _, ok := logEntry["error"]; !ok {
				return false
			}

			return true
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewAcceptsKnownEnvironments(t *testing.T) {
	for _, env := range []string{"development", "production", "staging"} {
		logger, err := New(env)
		if err != nil {
			t.Fatalf("Failed to create logger for env %q: %v", env, err)
		}
		if logger == nil {
			t.Fatalf("Logger should not be nil for env %q", env)
		}
		logger.Sync()
	}
}
