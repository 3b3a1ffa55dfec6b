package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level), recorded
}

func traceQuery(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) {
		return sql, rows
	}
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	switched := gormLog.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gormLog.level)
	switchedLog, ok := switched.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, switchedLog.level)
}

func TestGormLogger_Messages(t *testing.T) {
	t.Run("info passes through", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Info)

		gormLog.Info(context.Background(), "migrating %s", "entities")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "migrating entities")
	})

	t.Run("warn passes through", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Warn)

		gormLog.Warn(context.Background(), "retrying %d", 2)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("silent suppresses everything", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Silent)

		gormLog.Info(context.Background(), "hidden")
		gormLog.Warn(context.Background(), "hidden")
		gormLog.Error(context.Background(), "hidden")

		assert.Empty(t, recorded.All())
	})
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("query error logs at error level", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Error)

		gormLog.Trace(context.Background(), time.Now(),
			traceQuery("INSERT INTO entities DEFAULT VALUES", 0),
			errors.New("unique constraint violated"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "query failed", logs[0].Message)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})

	t.Run("record not found is never logged", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Error)

		gormLog.Trace(context.Background(), time.Now(),
			traceQuery("SELECT * FROM entities WHERE id = ?", 0),
			gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("slow query logs at warn level", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Warn)

		begin := time.Now().Add(-2 * slowQueryThreshold)
		gormLog.Trace(context.Background(), begin,
			traceQuery("SELECT * FROM entity_fields", 2000), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "slow query", logs[0].Message)
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("normal query logs at debug level", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Info)

		gormLog.Trace(context.Background(), time.Now(),
			traceQuery("SELECT * FROM sync_runs", 5), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "query", logs[0].Message)
		assert.Equal(t, zapcore.DebugLevel, logs[0].Level)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Silent)

		gormLog.Trace(context.Background(), time.Now(),
			traceQuery("SELECT 1", 1), nil)

		assert.Empty(t, recorded.All())
	})
}

func TestGormLogger_Trace_CarriesContextIDs(t *testing.T) {
	gormLog, recorded := newObservedGormLogger(gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-9")
	ctx = context.WithValue(ctx, OrgIDKey, "org-3")

	gormLog.Trace(ctx, time.Now(),
		traceQuery("SELECT * FROM connectors WHERE org_id = ?", 1), nil)

	logs := recorded.All()
	require.Len(t, logs, 1)

	fields := entryFields(logs[0])
	assert.Equal(t, "req-9", fields["request_id"].String)
	assert.Equal(t, "org-3", fields["org_id"].String)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	var _ gormlogger.Interface = gormLog
}
