// Command runlog-import loads a training plan file into the database,
// replacing any existing plan.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"runlog/internal/adapter/postgres"
	"runlog/internal/app"
)

func main() {
	file := flag.String("file", "", "plan file to import (.csv or .yaml)")
	format := flag.String("format", "", "file format, csv or yaml (default: by extension)")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := postgres.Open(connStr)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer func() { _ = db.Close() }()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open plan file: %v", err)
	}
	defer func() { _ = f.Close() }()

	fmtName := *format
	if fmtName == "" {
		switch strings.ToLower(filepath.Ext(*file)) {
		case ".yaml", ".yml":
			fmtName = "yaml"
		default:
			fmtName = "csv"
		}
	}

	svc := app.NewPlanService(db)
	ctx := context.Background()

	var imported int
	switch fmtName {
	case "yaml":
		imported, err = svc.ImportYAML(ctx, f)
	case "csv":
		imported, err = svc.ImportCSV(ctx, f)
	default:
		log.Fatalf("unknown format %q", fmtName)
	}
	if err != nil {
		log.Fatalf("import: %v", err)
	}

	log.Printf("imported %d plan entries from %s", imported, *file)
}
