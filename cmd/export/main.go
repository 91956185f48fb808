package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"familytime/internal/calendar"
	"familytime/internal/config"
	"familytime/internal/docstore"
	"familytime/internal/models"
)

// exportDocument is the on-disk shape of one exported record.
type exportDocument struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func main() {
	output := flag.String("output", "", "Output file path (default: export_YYYYMMDD_HHMMSS.json)")
	flag.Parse()

	cfg := config.Load()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}
	defer closeStore()

	lister, ok := store.(docstore.Lister)
	if !ok {
		log.Fatalf("Store type %s does not support export", cfg.StoreType)
	}

	path := *output
	if path == "" {
		path = fmt.Sprintf("export_%s.json", time.Now().Format("20060102_150405"))
	}

	if err := runExport(context.Background(), lister, path); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	fmt.Printf("Export written to %s\n", path)
}

func runExport(ctx context.Context, lister docstore.Lister, path string) error {
	collections := []string{
		models.CollectionFamilies,
		models.CollectionUsers,
		models.CollectionPreferences,
		calendar.CollectionLinks,
	}

	dump := make(map[string][]exportDocument, len(collections))
	for _, collection := range collections {
		docs, err := lister.ListCollection(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", collection, err)
		}
		out := make([]exportDocument, 0, len(docs))
		for _, doc := range docs {
			out = append(out, exportDocument{
				ID:        doc.ID,
				Fields:    doc.Fields,
				Version:   doc.Version,
				UpdatedAt: doc.UpdatedAt,
			})
		}
		dump[collection] = out
		log.Printf("Exported %d documents from %s", len(out), collection)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(dump); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// openStore mirrors the server's backend selection.
func openStore(cfg *config.Config) (docstore.Store, func(), error) {
	switch cfg.StoreType {
	case "memory":
		return docstore.NewMemoryStore(), func() {}, nil
	case "sqlite":
		return openSQL(docstore.NewSQLiteDialect(), docstore.DialectConfig{Path: cfg.StorePath})
	case "postgres":
		return openSQL(docstore.NewPostgresDialect(), docstore.DialectConfig{URL: cfg.StoreURL})
	case "mysql":
		return openSQL(docstore.NewMySQLDialect(), docstore.DialectConfig{URL: cfg.StoreURL})
	default:
		return nil, nil, fmt.Errorf("unsupported store type: %s", cfg.StoreType)
	}
}

func openSQL(dialect docstore.Dialect, dialectConfig docstore.DialectConfig) (docstore.Store, func(), error) {
	store, err := docstore.OpenSQL(dialect, dialectConfig)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}, nil
}
