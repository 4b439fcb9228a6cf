package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the database described by the DSN.
//
// DSNs starting with postgres:// or postgresql://, or containing key=value
// connection parameters, use PostgreSQL; everything else is treated as a
// SQLite path or file: URI.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}

	conn, err := gorm.Open(dialectorFor(trimmed), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	return conn, nil
}

// dialectorFor picks the gorm dialector matching the DSN shape.
func dialectorFor(dsn string) gorm.Dialector {
	lowered := strings.ToLower(dsn)
	if strings.HasPrefix(lowered, "postgres://") ||
		strings.HasPrefix(lowered, "postgresql://") ||
		strings.Contains(lowered, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}
