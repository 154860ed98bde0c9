package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"platecost/internal/config"
	"platecost/internal/db"
	"platecost/internal/db/mock"
	applog "platecost/internal/log"
	"platecost/internal/pricesheet"
	"platecost/internal/store"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: import_prices <sheet.csv|sheet.pdf|sheet.txt> [...]")
		os.Exit(2)
	}

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, paths []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		applog.Warn(ctx, "invalid log level, keeping default", "level", cfg.Logging.Level, "error", err)
	}

	database, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}

	return importFiles(ctx, store.New(database), paths, out)
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.UseMock {
		database, err := mock.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("open mock database: %w", err)
		}
		return database, nil
	}

	database, err := db.Initialize(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(database); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return database, nil
}

func importFiles(ctx context.Context, s *store.Store, paths []string, out io.Writer) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("sheet path must not be empty")
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rows, rowErrs, err := pricesheet.Parse(path, data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		summary, err := pricesheet.Import(ctx, s, rows)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		summary.Errors = append(rowErrs, summary.Errors...)

		fmt.Fprintf(out, "Imported %s: %d created, %d updated\n", filepath.Base(path), summary.Created, summary.Updated)
		for _, rowErr := range summary.Errors {
			fmt.Fprintf(out, "  skipped %s\n", rowErr.Error())
		}
	}
	return nil
}
