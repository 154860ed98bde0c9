package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"platecost/internal/db/mock"
	"platecost/internal/store"
)

func TestImportFilesUpdatesMockKitchen(t *testing.T) {
	ctx := context.Background()
	database, err := mock.New(ctx)
	if err != nil {
		t.Fatalf("mock.New returned error: %v", err)
	}
	s := store.New(database)

	dir := t.TempDir()
	sheet := filepath.Join(dir, "market.csv")
	contents := "Name,Source,Quantity,Unit,Price,Category\n" +
		"Sugar,Corner Market,1000,g,650,dry goods\n" +
		"Honey,Corner Market,500,g,900,pantry\n" +
		"Salt,Corner Market,0,g,100,pantry\n"
	if err := os.WriteFile(sheet, []byte(contents), 0o600); err != nil {
		t.Fatalf("write sheet: %v", err)
	}

	var out bytes.Buffer
	if err := importFiles(ctx, s, []string{sheet}, &out); err != nil {
		t.Fatalf("importFiles() error = %v", err)
	}

	report := out.String()
	if !strings.Contains(report, "market.csv: 1 created, 1 updated") {
		t.Fatalf("report = %q, want 1 created and 1 updated", report)
	}
	if !strings.Contains(report, "skipped line 4") {
		t.Fatalf("report = %q, want skipped line 4", report)
	}

	sugar, err := s.Ingredients.Lookup(ctx, "Sugar", "Corner Market")
	if err != nil {
		t.Fatalf("Lookup(Sugar): %v", err)
	}
	if sugar.Price != 650 {
		t.Fatalf("Sugar price = %v, want 650", sugar.Price)
	}
}

func TestImportFilesReportsMissingFile(t *testing.T) {
	ctx := context.Background()
	database, err := mock.New(ctx)
	if err != nil {
		t.Fatalf("mock.New returned error: %v", err)
	}

	err = importFiles(ctx, store.New(database), []string{filepath.Join(t.TempDir(), "missing.csv")}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for missing sheet")
	}
}
