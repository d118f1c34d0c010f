// Prototype persistence. Prototypes live in a user-local SQLite database so
// that training survives process restarts.
package learner

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"codesense/internal/logging"
)

// Store persists PatternPrototypes in SQLite. Centroids are sparse
// term-weight maps and are stored as JSON text.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// NewStore creates or opens the prototype store at dbPath
// (e.g. ".codesense/prototypes.db"), creating the schema if needed.
func NewStore(dbPath string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewStore")
	defer timer.Stop()

	if dbPath == "" {
		return nil, fmt.Errorf("database path required")
	}

	logging.Store("Initializing prototype store at: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("Prototype store initialized successfully")
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prototypes (
		label TEXT PRIMARY KEY,
		centroid TEXT NOT NULL,
		sample_count INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_prototypes_samples ON prototypes(sample_count);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create prototypes table: %w", err)
	}
	return nil
}

// Save upserts one prototype.
func (s *Store) Save(p Prototype) error {
	timer := logging.StartTimer(logging.CategoryStore, "Store.Save")
	defer timer.Stop()

	if p.Label == "" {
		return fmt.Errorf("prototype label required")
	}

	centroidJSON, err := json.Marshal(p.Centroid)
	if err != nil {
		return fmt.Errorf("failed to encode centroid: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO prototypes (label, centroid, sample_count, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(label) DO UPDATE SET
			centroid = excluded.centroid,
			sample_count = excluded.sample_count,
			updated_at = CURRENT_TIMESTAMP
	`, p.Label, string(centroidJSON), p.SampleCount)
	if err != nil {
		return fmt.Errorf("failed to upsert prototype: %w", err)
	}

	logging.StoreDebug("Prototype saved: label=%s samples=%d terms=%d",
		p.Label, p.SampleCount, len(p.Centroid))
	return nil
}

// LoadAll returns every stored prototype ordered by label.
func (s *Store) LoadAll() ([]Prototype, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Store.LoadAll")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT label, centroid, sample_count FROM prototypes ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prototypes: %w", err)
	}
	defer rows.Close()

	var out []Prototype
	for rows.Next() {
		var p Prototype
		var centroidJSON string
		if err := rows.Scan(&p.Label, &centroidJSON, &p.SampleCount); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to scan prototype row: %v", err)
			continue
		}
		if err := json.Unmarshal([]byte(centroidJSON), &p.Centroid); err != nil {
			logging.Get(logging.CategoryStore).Warn("Skipping prototype %s with bad centroid: %v", p.Label, err)
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prototypes: %w", err)
	}

	logging.StoreDebug("Loaded %d prototypes", len(out))
	return out, nil
}

// Delete removes one prototype by label.
func (s *Store) Delete(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM prototypes WHERE label = ?`, label); err != nil {
		return fmt.Errorf("failed to delete prototype: %w", err)
	}
	logging.StoreDebug("Prototype deleted: %s", label)
	return nil
}

// Decay reduces the sample count of stale prototypes, lowering their inertia
// so that fresh samples move the centroid faster. Counts never drop below 1.
// Returns the number of prototypes decayed.
func (s *Store) Decay(factor float64, olderThanDays int) (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Store.Decay")
	defer timer.Stop()

	if factor <= 0 || factor >= 1 {
		factor = 0.9
	}
	if olderThanDays <= 0 {
		olderThanDays = 7
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logging.Store("Decaying prototype sample counts (factor=%.2f, older than %d days)", factor, olderThanDays)

	result, err := s.db.Exec(`
		UPDATE prototypes
		SET sample_count = MAX(1, CAST(sample_count * ? AS INTEGER)),
		    updated_at = CURRENT_TIMESTAMP
		WHERE datetime(updated_at) < datetime('now', '-' || ? || ' days')
	`, factor, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to decay prototypes: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	logging.StoreDebug("Decayed %d prototypes", rowsAffected)
	return int(rowsAffected), nil
}

// Stats returns summary statistics about the stored prototypes.
func (s *Store) Stats() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]interface{})

	var total, samples int64
	if err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(sample_count), 0) FROM prototypes`).Scan(&total, &samples); err != nil {
		return nil, fmt.Errorf("failed to read prototype stats: %w", err)
	}
	stats["total_prototypes"] = total
	stats["total_samples"] = samples
	stats["db_path"] = s.dbPath

	return stats, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	logging.Store("Closing prototype store")
	err := s.db.Close()
	s.db = nil
	return err
}
