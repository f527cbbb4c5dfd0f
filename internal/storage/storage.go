package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of rows.
	Store(rows []types.Row) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the backend selected by cfg.Type. A comma-separated type
// list (e.g. "json,sqlite") fans every batch out to each backend.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	if !strings.Contains(cfg.Type, ",") {
		return newBackend(cfg.Type, cfg, logger)
	}

	var backends []Storage
	for _, typ := range strings.Split(cfg.Type, ",") {
		b, err := newBackend(strings.TrimSpace(typ), cfg, logger)
		if err != nil {
			for _, opened := range backends {
				opened.Close()
			}
			return nil, err
		}
		backends = append(backends, b)
	}
	return NewMultiStorage(backends, logger), nil
}

func newBackend(typ string, cfg *config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch typ {
	case "json", "jsonl", "csv":
		return NewFileStorage(typ, cfg.OutputPath, logger)
	case "mongodb":
		return NewMongoStorage(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	case "sqlite":
		return NewSQLiteStorage(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", typ)
	}
}
