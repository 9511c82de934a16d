package repo

import (
	"strings"

	"DocVault/internal/model"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// InitDB открывает хранилище метаданных и применяет миграции.
// postgres:// и postgresql:// — PostgreSQL, всё остальное — SQLite (modernc).
func InitDB(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var dial gorm.Dialector
	if isPostgres(dsn) {
		dial = postgres.Open(dsn)
	} else {
		if dsn == "" {
			dsn = "file:docvault.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	}

	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}
	if !isPostgres(dsn) {
		// SQLite допускает одного писателя; транзакции батчей выполняются по очереди.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate создаёт/обновляет таблицы для всех моделей.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.FileReference{}, &model.FilePart{}, &model.TenantKey{})
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
