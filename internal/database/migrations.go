package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds the indexes the dashboard and OTP sweeper rely on
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Dashboard listing: tasks of one owner sorted by due date
		{"tasks", "idx_tasks_owner_due_date", "owner_id, due_date"},

		// Expired code cleanup
		{"otp_codes", "idx_otp_codes_expires_at", "expires_at"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			zap.L().Debug("Index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		zap.L().Info("Created index",
			zap.String("index", idx.name),
			zap.String("table", idx.table),
			zap.String("columns", idx.columns),
		)
	}

	return nil
}

// UseBinaryEmailCollation makes email columns case-sensitive on MySQL,
// whose default utf8mb4 collation compares case-insensitively. Other
// dialects already compare bytes.
func UseBinaryEmailCollation(db *gorm.DB) error {
	if db.Dialector.Name() != "mysql" {
		return nil
	}

	for _, table := range []string{"users", "otp_codes"} {
		sql := fmt.Sprintf("ALTER TABLE %s MODIFY email varchar(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL", table)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to set email collation on %s: %w", table, err)
		}
	}

	zap.L().Debug("Email columns use utf8mb4_bin collation")
	return nil
}
