// MIT License
//
// # Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
package auditlog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pterm/pterm"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config describes how to open and size the audit database connection.
type Config struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// slowQueryLogger adapts gorm's query tracing onto the pterm logger used
// everywhere else in this process.
type slowQueryLogger struct {
	logger        *pterm.Logger
	slowThreshold time.Duration
	logLevel      gormlogger.LogLevel
}

func newSlowQueryLogger(l *pterm.Logger, slowThreshold time.Duration) *slowQueryLogger {
	return &slowQueryLogger{logger: l, slowThreshold: slowThreshold, logLevel: gormlogger.Warn}
}

func (l *slowQueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	l.logLevel = level
	return l
}

func (l *slowQueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Info {
		l.logger.Info(msg, l.logger.Args("data", data))
	}
}

func (l *slowQueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Warn {
		l.logger.Warn(msg, l.logger.Args("data", data))
	}
}

func (l *slowQueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Error {
		l.logger.Error(msg, l.logger.Args("data", data))
	}
}

func (l *slowQueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	if elapsed >= l.slowThreshold {
		l.logger.Debug("slow audit query", l.logger.Args("duration_ms", elapsed.Milliseconds(), "rows", rows, "sql", sql))
	} else if l.logLevel >= gormlogger.Info {
		l.logger.Trace("audit query", l.logger.Args("duration_ms", elapsed.Milliseconds(), "rows", rows, "sql", sql))
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return
		}
		l.logger.Error("audit query error", l.logger.Args("error", err, "duration_ms", elapsed.Milliseconds(), "sql", sql))
	}
}

// NewConnection opens the audit SQLite database in WAL mode and runs
// migrations. The index set is reconciled only when the table already
// holds rows at open time; an empty table gets no index reconciliation
// during this process's lifetime.
func NewConnection(cfg *Config, logger *pterm.Logger) (*gorm.DB, error) {
	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		Logger:      newSlowQueryLogger(logger, 100*time.Millisecond),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	maxOpenConns, maxIdleConns := cfg.MaxOpenConns, cfg.MaxIdleConns
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLife)

	logger.Trace("running audit database migrations")
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	var count int64
	db.Model(&AccessLogEntry{}).Count(&count)
	if count == 0 {
		logger.Info("empty audit database, skipping index reconciliation until a later start")
	} else if err := optimizeDatabase(db, logger); err != nil {
		logger.Warn("audit database optimization had warnings", logger.Args("error", err))
	}

	logger.Info("audit database connection established", logger.Args("path", cfg.Path))
	return db, nil
}
