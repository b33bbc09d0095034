package staging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/efiling/internal/logging"
)

// slowQuery is the duration above which a statement is logged at default verbosity.
const slowQuery = 500 * time.Millisecond

// GormLogger routes gorm's logging into logr.
type GormLogger struct {
	log   logr.Logger
	level gormlogger.LogLevel
}

// NewGormLogger returns a gorm logger writing to log at Warn level.
func NewGormLogger(log logr.Logger) *GormLogger {
	return &GormLogger{log: log.WithName("staging"), level: gormlogger.Warn}
}

// LogMode implements gormlogger.Interface.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

// Info implements gormlogger.Interface.
func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.V(logging.VERBOSE).Info(fmt.Sprintf(msg, args...))
	}
}

// Warn implements gormlogger.Interface.
func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

// Error implements gormlogger.Interface.
func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.Error(nil, fmt.Sprintf(msg, args...))
	}
}

// Trace implements gormlogger.Interface. Statements are logged at TRACE,
// slow ones at default verbosity and failures as errors.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.log.Error(err, "staging statement failed", "sql", sql, "rows", rows, "elapsed", elapsed)
	case elapsed > slowQuery && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Info("slow staging statement", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.log.V(logging.TRACE).Enabled():
		sql, rows := fc()
		l.log.V(logging.TRACE).Info("staging statement", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
