package db

import (
	"fmt"

	"github.com/router-for-me/RelayStationHub/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migrationModels lists every persisted model in migration order.
func migrationModels() []any {
	return []any{
		&models.Station{},
		&models.StationConfig{},
		&models.ConfigUsage{},
	}
}

// migrateSQLite applies SQLite schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errLegacy := addLegacyStationColumns(conn); errLegacy != nil {
		return errLegacy
	}

	if errAutoMigrate := conn.AutoMigrate(migrationModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	return createIndexes(conn)
}

// migratePostgres applies PostgreSQL schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(migrationModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errLegacy := conn.Exec(`
		ALTER TABLE relay_stations
		ADD COLUMN IF NOT EXISTS user_id text
	`).Error; errLegacy != nil {
		return fmt.Errorf("db: add station user_id: %w", errLegacy)
	}

	return createIndexes(conn)
}

// addLegacyStationColumns adds columns that predate the current model on
// databases created by older releases. AutoMigrate recreates them for new
// databases, so missing tables are skipped.
func addLegacyStationColumns(conn *gorm.DB) error {
	migrator := conn.Migrator()
	if migrator == nil {
		return fmt.Errorf("db: nil migrator")
	}
	if !migrator.HasTable(&models.Station{}) {
		return nil
	}
	if migrator.HasColumn(&models.Station{}, "user_id") {
		return nil
	}
	if errAdd := migrator.AddColumn(&models.Station{}, "UserID"); errAdd != nil {
		return fmt.Errorf("db: add station user_id: %w", errAdd)
	}
	return nil
}

// createIndexes applies index statements shared by both dialects.
func createIndexes(conn *gorm.DB) error {
	// ddl defines an index statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_relay_stations_created_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_relay_stations_created_at
				ON relay_stations (created_at DESC)
			`,
		},
		{
			name: "idx_config_usage_applied_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_config_usage_applied_at
				ON config_usage (applied_at DESC)
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}
	return nil
}
