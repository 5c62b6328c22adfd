package vectorstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteIndex persists records in a SQLite file and ranks them by brute-force
// cosine distance. Records are partitioned by collection name.
type SQLiteIndex struct {
	db         *sql.DB
	collection string
	logger     *zap.Logger
}

var _ Index = (*SQLiteIndex)(nil)

// OpenSQLite opens (creating if needed) the index file at path and applies
// pending schema migrations.
func OpenSQLite(path, collection string, logger *zap.Logger) (*SQLiteIndex, error) {
	logger = logger.Named("vectorstore")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	if err := RunMigrations(path, logger); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent ingestion.
	db.SetMaxOpenConns(1)

	return &SQLiteIndex{db: db, collection: collection, logger: logger}, nil
}

// RunMigrations applies the embedded chunk schema to the file at path.
// The migrate driver closes its connection, so it gets its own handle.
func RunMigrations(path string, logger *zap.Logger) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open migration database: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Debug("No vector store migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Applied vector store migrations", zap.Uint("version", version))
	return nil
}

// Add implements Index.
func (s *SQLiteIndex) Add(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (collection, id, document, metadata, embedding, dimensions)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta := r.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			s.collection,
			r.ID,
			r.Document,
			string(metaJSON),
			encodeEmbedding(r.Embedding),
			len(r.Embedding),
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// Query implements Index.
func (s *SQLiteIndex) Query(ctx context.Context, embedding []float32, n int) (*QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document, metadata, embedding
		FROM chunks
		WHERE collection = ?
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var candidates []Record
	for rows.Next() {
		var r Record
		var metaJSON string
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Document, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		r.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			s.logger.Warn("Skipping chunk with corrupt embedding", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		if err := json.Unmarshal([]byte(metaJSON), &r.Metadata); err != nil {
			s.logger.Warn("Skipping chunk with corrupt metadata", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		candidates = append(candidates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return nearest(candidates, embedding, n), nil
}

// Count implements Index.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE collection = ?", s.collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Close implements Index.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
