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
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	restoreGlobal(t)
	core, logs := observer.New(zapcore.DebugLevel)
	global.Store(zap.New(core))
	return logs
}

func statement() (string, int64) {
	return `SELECT * FROM "recipes"`, 3
}

func TestGormLoggerTrace(t *testing.T) {
	logs := observeGlobal(t)
	log := NewGormLogger(gormlogger.Warn, 100*time.Millisecond)
	ctx := context.Background()

	log.Trace(ctx, time.Now(), statement, errors.New("relation does not exist"))
	log.Trace(ctx, time.Now(), statement, gorm.ErrRecordNotFound)
	log.Trace(ctx, time.Now().Add(-time.Second), statement, nil)
	log.Trace(ctx, time.Now(), statement, nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "query failed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "gorm", fields["component"])
	assert.Equal(t, `SELECT * FROM "recipes"`, fields["sql"])
	assert.Equal(t, int64(3), fields["rows"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "slow query", entries[1].Message)
}

func TestGormLoggerLogMode(t *testing.T) {
	logs := observeGlobal(t)
	base := NewGormLogger(gormlogger.Warn, 0)
	ctx := context.Background()

	silent := base.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), statement, errors.New("boom"))
	silent.Error(ctx, "failed %d", 1)
	assert.Zero(t, logs.Len())

	base.Info(ctx, "hidden at warn")
	base.Warn(ctx, "migrating %s", "recipes")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "migrating recipes", logs.All()[0].Message)

	verbose := base.LogMode(gormlogger.Info)
	verbose.Trace(ctx, time.Now(), statement, nil)
	entries := logs.FilterMessage("query").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}
