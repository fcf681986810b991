package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"measure-tracker/internal/db"
	"measure-tracker/internal/geo"
	"measure-tracker/internal/models"
)

func main() {
	// Sub-commands
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	os.Args = os.Args[1:] // Shift args for flag parsing

	switch cmd {
	case "seed":
		seedRecords()
	case "viewport":
		printViewport()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: tools <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  seed      Load a JSON file of {table: [records]} into the database")
	fmt.Println("  viewport  Print the bounding box and map viewport of a GeoJSON file")
}

func seedRecords() {
	dbPath := flag.String("db", "data/measures.db", "Database path")
	file := flag.String("file", "data/seed.json", "JSON file keyed by table name")
	replace := flag.Bool("replace", false, "Replace table contents instead of upserting")
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	var tables map[string][]models.Record
	if err := json.Unmarshal(data, &tables); err != nil {
		log.Fatalf("Failed to parse seed file: %v", err)
	}

	known := make(map[string]bool, len(models.Tables))
	for _, t := range models.Tables {
		known[t] = true
	}

	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx := context.Background()
	for _, table := range names {
		if !known[table] {
			log.Printf("Skipping unknown table %q", table)
			continue
		}
		records := tables[table]
		if *replace {
			err = database.ReplaceRecords(ctx, table, records)
		} else {
			err = database.UpsertRecords(ctx, table, records)
		}
		if err != nil {
			log.Fatalf("Failed to seed %s: %v", table, err)
		}
		count, _ := database.RecordCount(ctx, table)
		log.Printf("Seeded %s: %d records (%d total)", table, len(records), count)
	}
}

func printViewport() {
	file := flag.String("file", "", "GeoJSON file")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}

	box, err := geo.BoundsOf(data)
	if err != nil {
		log.Fatalf("Failed to compute bbox: %v", err)
	}
	if !box.IsValid() {
		log.Printf("Warning: bbox %v lies outside valid coordinates", box)
	}

	out, _ := json.MarshalIndent(map[string]any{
		"bbox":     box,
		"viewport": geo.ViewportFor(box),
	}, "", "  ")
	fmt.Println(string(out))
}
