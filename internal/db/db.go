package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"platecost/internal/config"
	applog "platecost/internal/log"
	"platecost/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

// Driver resolves the dialect for cfg. An explicit Driver wins; otherwise a
// postgres:// or postgresql:// URL selects postgres and anything else sqlite.
func Driver(cfg config.DatabaseConfig) string {
	if driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver != "" {
		return driver
	}
	url := strings.ToLower(strings.TrimSpace(cfg.URL))
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") || strings.Contains(url, "host=") {
		return "postgres"
	}
	return "sqlite"
}

func dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch driver := Driver(cfg); driver {
	case "postgres":
		return postgres.Open(cfg.URL), nil
	case "sqlite":
		return sqlite.Open(strings.TrimPrefix(cfg.URL, "sqlite://")), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("database URL must not be empty")
	}

	dial, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	db, err := gorm.Open(dial, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	applog.Debug(context.Background(), "database opened", "driver", Driver(cfg))
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}

	return db.AutoMigrate(
		&models.Ingredient{},
		&models.Dish{},
		&models.DishComponent{},
		&models.CompletedFood{},
		&models.FoodComponent{},
	)
}

func Configure(cfg config.DatabaseConfig) (*gorm.DB, error) {
	database, err := Initialize(cfg)
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(database); err != nil {
		return nil, err
	}

	DB = database

	return database, nil
}

func MustConfigure(cfg config.DatabaseConfig) *gorm.DB {
	database, err := Configure(cfg)
	if err != nil {
		panic(err)
	}

	return database
}

func Get() *gorm.DB {
	return DB
}
