package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewRespectsMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zerolog.WarnLevel)

	logger.Info().Msg("should be suppressed")
	assert.Empty(t, buf.String())

	logger.Warn().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestStartupLogsHostAndPort(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger
	Logger = New(&buf, zerolog.InfoLevel)
	defer func() { Logger = orig }()

	Startup("127.0.0.1", 6379)
	out := buf.String()
	assert.Contains(t, out, "127.0.0.1")
	assert.Contains(t, out, "6379")
}

func TestWarnIncludesUnderlyingError(t *testing.T) {
	var buf bytes.Buffer
	orig := Logger
	Logger = New(&buf, zerolog.InfoLevel)
	defer func() { Logger = orig }()

	Warn("something failed", errors.New("boom"))
	out := buf.String()
	assert.True(t, strings.Contains(out, "something failed"))
	assert.True(t, strings.Contains(out, "boom"))
}
