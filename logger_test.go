package oidcserver

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ Logger = slog.Default()

func TestZapLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Debug("debug message", "key", "value")
	assert.Equal(t, 0, recorded.Len(), "Debug message should not be recorded at Info level")

	logger.Info("info message", "key", "value")
	logger.Warn("warn message", "key", "value")
	logger.Error("error message", "key", "value")

	entries := recorded.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "info message", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "value", entries[2].ContextMap()["key"])
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Debug("debug message", "key", "value")
	logger.Info("info message", "count", 3)
	logger.Warn("warn message")
	logger.Error("error message", "key", "value")

	logOutput := buf.String()
	assert.Contains(t, logOutput, `"message":"debug message"`)
	assert.Contains(t, logOutput, `"count":3`)
	assert.Contains(t, logOutput, `"level":"warn"`)
	assert.Contains(t, logOutput, `"key":"value"`)
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	logrusLogger := logrus.New()
	logrusLogger.Out = &buf
	logrusLogger.Formatter = &logrus.TextFormatter{DisableTimestamp: true, DisableColors: true}
	logrusLogger.Level = logrus.InfoLevel

	logger := NewLogrusLogger(logrusLogger)

	logger.Debug("debug message", "key", "value")
	assert.Empty(t, buf.String(), "Debug message should not be logged at Info level")

	logger.Info("info message", "key", "value")
	logger.Warn("warn message", "dangling")
	logger.Error("error message")

	logOutput := buf.String()
	assert.Contains(t, logOutput, `msg="info message" key=value`)
	assert.Contains(t, logOutput, `!BADKEY=dangling`)
	assert.Contains(t, logOutput, `level=error`)
}

func TestServer_Logging(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	s := newTestServer(t, WithLogger(NewZapLogger(zap.New(core))))

	post(t, s.TokenHandler(), clientCredentials(""), "client-1", "wrong")

	assert.NotZero(t, recorded.FilterMessage("checkpoint rejected the request").
		FilterField(zap.String("checkpoint", CheckpointClientAuthentication)).Len())
	assert.Equal(t, 1, recorded.FilterMessage("token request rejected").Len())
}
