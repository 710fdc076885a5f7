// Command jrest-gen generates entity types, with their property lists and
// registrations, from the tables of an existing database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shrek82/jrest/core"
	"github.com/shrek82/jrest/logger"
)

var (
	driverName = flag.String("driver", "sqlite3", "database driver (sqlite3, mysql, postgres)")
	dsn        = flag.String("dsn", "", "data source name")
	tableName  = flag.String("table", "", "table to generate; all tables when empty")
	pkgName    = flag.String("pkg", "entities", "package name of the generated code")
	outDir     = flag.String("out", "./entities", "output directory")
	overwrite  = flag.Bool("overwrite", false, "overwrite existing files")
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	flag.Parse()

	if *dsn == "" {
		fmt.Println("usage: jrest-gen -dsn <dsn> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	db, err := core.Open(*driverName, *dsn, nil)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	db.SetLogger(logger.Discard())

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}

	ctx := context.Background()
	tables, err := db.Tables(ctx)
	if err != nil {
		log.Fatalf("list tables: %v", err)
	}
	targets := tables
	if *tableName != "" {
		targets = []string{*tableName}
	}

	for _, table := range targets {
		if err := generate(ctx, db, table, tables); err != nil {
			log.Printf("table %s: %v", table, err)
		}
	}
}

func generate(ctx context.Context, db *core.DB, table string, tables []string) error {
	fileName := filepath.Join(*outDir, strings.ToLower(table)+".go")
	if _, err := os.Stat(fileName); err == nil && !*overwrite {
		log.Printf("%s exists, skipped (use -overwrite)", fileName)
		return nil
	}

	cols, err := db.Columns(ctx, table)
	if err != nil {
		return err
	}
	data, skipped := buildEntity(*pkgName, table, cols, tables)
	for _, s := range skipped {
		log.Printf("table %s: skipped column %s", table, s)
	}

	src, err := render(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(fileName, src, 0o644); err != nil {
		return err
	}
	log.Printf("generated %s -> %s", table, fileName)
	return nil
}
