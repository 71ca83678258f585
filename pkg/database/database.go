package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/curatehub/curatehub/config"
	"github.com/curatehub/curatehub/internal/model"
)

// InitDB 按配置打开数据库并建表
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Database.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 迁移全部表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Feed{},
		&model.Submission{},
		&model.SubmissionFeed{},
		&model.ModerationAction{},
		&model.LastProcessedState{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
