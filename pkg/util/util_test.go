package util

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo(t *testing.T) {
	t.Run("production writes json", func(t *testing.T) {
		var buf bytes.Buffer
		NewLoggerTo(&buf, "production").Info("hello", "k", "v")
		assert.Contains(t, buf.String(), `"msg":"hello"`)
		assert.Contains(t, buf.String(), `"app":"inkpress"`)
	})

	t.Run("development writes text at debug", func(t *testing.T) {
		var buf bytes.Buffer
		NewLoggerTo(&buf, "development").Debug("details")
		assert.Contains(t, buf.String(), "msg=details")
	})
}

func TestValidateCronExpr(t *testing.T) {
	assert.NoError(t, ValidateCronExpr("*/30 * * * *"))
	assert.Error(t, ValidateCronExpr("every half hour"))
	assert.Error(t, ValidateCronExpr("* * * * * *"))
}

func TestNextCronTime(t *testing.T) {
	from := time.Date(2026, 3, 1, 10, 7, 0, 0, time.UTC)

	next, err := NextCronTime("*/30 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC), next)

	_, err = NextCronTime("bogus", from)
	assert.Error(t, err)
}
