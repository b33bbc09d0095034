package staging

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/efiling/internal/core/fesloader"
)

// Dialects accepted by Open.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Open connects to the staging database. sqlite is used for local runs and tests.
func Open(dialect, dsn string, log logr.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectPostgres:
		dialector = postgres.Open(dsn)
	case DialectSQLite:
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unknown staging dialect %q", dialect)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect staging database: %w", err)
	}

	if dialect == DialectSQLite {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get staging connection pool: %w", err)
		}
		// sqlite serialises writers; one connection avoids SQLITE_BUSY
		// and keeps an in-memory database alive.
		sqlDB.SetMaxOpenConns(1)
	}

	return gdb, nil
}

func sqliteDSN(dsn string) string {
	if dsn == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	return "file:" + dsn + "?_foreign_keys=on&_busy_timeout=5000"
}

// Migrate creates the staging tables and seeds every sequence at zero.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate staging schema: %w", err)
	}

	seqs := make([]Sequence, 0, len(fesloader.Sequences()))
	for _, name := range fesloader.Sequences() {
		seqs = append(seqs, Sequence{Name: name})
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seqs).Error
	if err != nil {
		return fmt.Errorf("failed to seed staging sequences: %w", err)
	}
	return nil
}
